package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/govpulse/internal/compose"
	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/feedback"
	"github.com/TobiSchelling/govpulse/internal/pipeline"
	"github.com/TobiSchelling/govpulse/internal/schedule"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

// --- analyze command ---

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Classify a feedback text without storing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lex := sentiment.DefaultLexicon()
		if cfg.LexiconPath != "" {
			loaded, err := sentiment.LoadLexicon(cfg.LexiconPath)
			if err != nil {
				return err
			}
			lex = loaded
		}

		rec := sentiment.NewAnalyzer(lex).Analyze(strings.Join(args, " "))
		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		printRecord(rec)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the classification as JSON")
}

func printRecord(rec sentiment.Record) {
	fmt.Printf("Sentiment:  %s\n", rec.Sentiment)
	fmt.Printf("Confidence: %.2f\n", rec.Confidence)
	fmt.Printf("Language:   %s\n", rec.Language)
	if rec.Category != nil {
		fmt.Printf("Category:   %s\n", rec.Category.Label())
	} else {
		fmt.Println("Category:   none")
	}
}

// --- offices command ---

var officesCmd = &cobra.Command{
	Use:   "offices",
	Short: "Manage service offices",
}

var officeRegion string

var officesAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a service office",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		name := strings.TrimSpace(args[0])
		if name == "" {
			return fmt.Errorf("office name is required")
		}
		var region *string
		if officeRegion != "" {
			region = &officeRegion
		}

		id, err := db.InsertOffice(name, region)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("office %q already exists", name)
		}
		fmt.Printf("Added office [%d]: %s\n", id, name)
		return nil
	},
}

var officesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List service offices",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		offices, err := db.ListOffices()
		if err != nil {
			return err
		}
		if len(offices) == 0 {
			fmt.Println("No offices registered. Add one with: govpulse offices add")
			return nil
		}

		fmt.Println("Offices:")
		fmt.Println()
		for _, o := range offices {
			fmt.Printf("  [%d] %s", o.ID, o.Name)
			if o.Region != nil && *o.Region != "" {
				fmt.Printf(" (%s)", *o.Region)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	officesAddCmd.Flags().StringVar(&officeRegion, "region", "", "Region the office belongs to")
	officesCmd.AddCommand(officesAddCmd)
	officesCmd.AddCommand(officesListCmd)
}

// --- feedback command ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record citizen feedback",
}

var (
	feedbackOffice int64
	feedbackRating int
)

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit [comment]",
	Short: "Store and classify a feedback comment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pub := openPublisher()
		defer pub.Close()

		svc, err := pipeline.NewServices(cfg, db, pub, nil)
		if err != nil {
			return err
		}

		comment := strings.Join(args, " ")
		receipt, err := svc.Feedback.Submit(cmd.Context(), feedback.Submission{
			OfficeID: feedbackOffice,
			Rating:   feedbackRating,
			Comment:  &comment,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Feedback recorded. Reference: %s\n\n", receipt.Reference)
		printRecord(receipt.Record)
		return nil
	},
}

func init() {
	feedbackSubmitCmd.Flags().Int64Var(&feedbackOffice, "office", 0, "Office ID")
	feedbackSubmitCmd.Flags().IntVar(&feedbackRating, "rating", 0, "Rating from 1 to 5 (optional)")
	_ = feedbackSubmitCmd.MarkFlagRequired("office")
	feedbackCmd.AddCommand(feedbackSubmitCmd)
}

// --- report command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate sentiment reports",
}

var (
	reportOffice int64
	reportPeriod string
)

var reportGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compose a report for an office and print it as markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		periodID := reportPeriod
		if periodID == "" {
			periodID = lastWeek()
		}
		if _, _, err := database.ParsePeriod(periodID); err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := pipeline.NewServices(cfg, db, nil, nil)
		if err != nil {
			return err
		}

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		rep, err := svc.Composer.ComposeReport(ctx, reportOffice, periodID)
		if err != nil {
			return err
		}

		office, err := db.GetOffice(rep.OfficeID)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("%s: %s", office.Name, database.FormatPeriodDisplay(periodID))
		fmt.Print(compose.Narrative(rep).Markdown(title))
		fmt.Printf("\n_Report %d, generated by %s from %d responses._\n", rep.ID, rep.Generator, rep.TotalFeedback)
		return nil
	},
}

func init() {
	reportGenerateCmd.Flags().Int64Var(&reportOffice, "office", 0, "Office ID")
	reportGenerateCmd.Flags().StringVar(&reportPeriod, "period", "", "Period (YYYY-MM-DD or start..end); defaults to the last 7 days")
	_ = reportGenerateCmd.MarkFlagRequired("office")
	reportCmd.AddCommand(reportGenerateCmd)
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring reports",
}

var (
	scheduleOffice    int64
	scheduleFrequency string
)

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Schedule a recurring report for an office",
	RunE: func(cmd *cobra.Command, args []string) error {
		freq, err := schedule.ParseFrequency(scheduleFrequency)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		office, err := db.GetOffice(scheduleOffice)
		if err != nil {
			return err
		}
		if office == nil {
			return fmt.Errorf("office %d not found", scheduleOffice)
		}

		first := schedule.FirstRun(time.Now())
		id, err := db.InsertSchedule(office.ID, string(freq), database.FormatTimestamp(first))
		if err != nil {
			return err
		}
		fmt.Printf("Scheduled %s report [%d] for %s, first run %s UTC\n", freq, id, office.Name, database.FormatTimestamp(first))
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		schedules, err := db.ListSchedules()
		if err != nil {
			return err
		}
		if len(schedules) == 0 {
			fmt.Println("No schedules defined. Add one with: govpulse schedule add")
			return nil
		}

		fmt.Println("Report Schedules:")
		fmt.Println()
		for _, s := range schedules {
			icon := " "
			if s.IsActive {
				icon = "*"
			}
			name := strconv.FormatInt(s.OfficeID, 10)
			if office, _ := db.GetOffice(s.OfficeID); office != nil {
				name = office.Name
			}
			fmt.Printf("  [%d] %s %-8s %s, next run %s\n", s.ID, icon, s.Frequency, name, s.NextRunAt)
		}
		return nil
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a report schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid schedule ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		removed, err := db.DeleteSchedule(id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("schedule %d not found", id)
		}
		fmt.Printf("Removed schedule [%d]\n", id)
		return nil
	},
}

func init() {
	scheduleAddCmd.Flags().Int64Var(&scheduleOffice, "office", 0, "Office ID")
	scheduleAddCmd.Flags().StringVar(&scheduleFrequency, "frequency", "weekly", "daily, weekly or monthly")
	_ = scheduleAddCmd.MarkFlagRequired("office")
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
}
