// cmd/tools/dbinspect/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"loan-management-service/internal/common/auth"
	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"
	"loan-management-service/internal/services/documents"
	"loan-management-service/internal/utils"
)

// structureReport summarises the collections the service writes.
type structureReport struct {
	GeneratedAt  string         `json:"generatedAt"`
	Applications map[string]int `json:"applicationsByStatus"`
	Sequences    int            `json:"sequenceDocuments"`
	Statistics   interface{}    `json:"statistics,omitempty"`
	Districts    int            `json:"districts"`
	Talukas      int            `json:"talukas"`
	Villages     int            `json:"villages"`
}

func main() {
	structureCmd := flag.NewFlagSet("structure", flag.ExitOnError)
	format := structureCmd.String("format", "json", "Output format (json, markdown)")

	lookupCmd := flag.NewFlagSet("lookup", flag.ExitOnError)
	lookupForm := lookupCmd.String("form", "", "Form number (e.g. LMS202508280001)")

	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
	verifyForm := verifyCmd.String("form", "", "Form number whose uploads to verify")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenUID := tokenCmd.String("uid", "", "User id to embed in the token")
	tokenEmail := tokenCmd.String("email", "", "Email to embed in the token")
	tokenRole := tokenCmd.String("role", "viewer", "Role (admin, employee, viewer)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "structure":
		structureCmd.Parse(os.Args[2:])
		if err := runStructure(*format); err != nil {
			fmt.Printf("Error building structure report: %v\n", err)
			os.Exit(1)
		}

	case "lookup":
		lookupCmd.Parse(os.Args[2:])
		if *lookupForm == "" {
			fmt.Println("Error: -form is required for lookup.")
			lookupCmd.Usage()
			os.Exit(1)
		}
		if err := runLookup(*lookupForm); err != nil {
			fmt.Printf("Error looking up application: %v\n", err)
			os.Exit(1)
		}

	case "verify":
		verifyCmd.Parse(os.Args[2:])
		if *verifyForm == "" {
			fmt.Println("Error: -form is required for verify.")
			verifyCmd.Usage()
			os.Exit(1)
		}
		if err := runVerify(*verifyForm); err != nil {
			fmt.Printf("Error verifying uploads: %v\n", err)
			os.Exit(1)
		}

	case "token":
		tokenCmd.Parse(os.Args[2:])
		if *tokenUID == "" {
			fmt.Println("Error: -uid is required for token.")
			tokenCmd.Usage()
			os.Exit(1)
		}
		if err := runToken(*tokenUID, *tokenEmail, *tokenRole); err != nil {
			fmt.Printf("Error issuing token: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (database.DocumentStore, error) {
	if cfg.Store.Backend == "memory" {
		return database.NewMemoryStore(), nil
	}
	return database.NewFirestore(ctx, cfg.Store)
}

func runStructure(format string) error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	report := structureReport{
		GeneratedAt:  time.Now().Format(time.RFC3339),
		Applications: map[string]int{},
	}

	appDocs, err := store.List(ctx, "loan_applications", database.Query{})
	if err != nil {
		return err
	}
	for _, doc := range appDocs {
		status, _ := doc.Data["status"].(string)
		if status == "" {
			status = "unknown"
		}
		report.Applications[status]++
	}

	seqDocs, err := store.List(ctx, "form_sequences", database.Query{})
	if err != nil {
		return err
	}
	report.Sequences = len(seqDocs)

	if stats, err := store.Get(ctx, "statistics/dashboard"); err == nil {
		report.Statistics = stats
	}

	for _, level := range []struct {
		collection string
		count      *int
	}{
		{"masters/locations/districts", &report.Districts},
		{"masters/locations/talukas", &report.Talukas},
		{"masters/locations/villages", &report.Villages},
	} {
		docs, err := store.List(ctx, level.collection, database.Query{})
		if err != nil {
			return err
		}
		*level.count = len(docs)
	}

	switch format {
	case "markdown":
		printMarkdown(report)
	default:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	return nil
}

func printMarkdown(report structureReport) {
	fmt.Println("# Database Structure Report")
	fmt.Printf("\nGenerated: %s\n", report.GeneratedAt)
	fmt.Println("\n## Applications by status")
	for status, count := range report.Applications {
		fmt.Printf("- %s: %d\n", status, count)
	}
	fmt.Printf("\n## Sequences\n- documents: %d\n", report.Sequences)
	fmt.Printf("\n## Masters\n- districts: %d\n- talukas: %d\n- villages: %d\n",
		report.Districts, report.Talukas, report.Villages)
	if report.Statistics != nil {
		data, _ := json.MarshalIndent(report.Statistics, "", "  ")
		fmt.Printf("\n## Statistics\n```json\n%s\n```\n", string(data))
	}
}

func loadApplication(ctx context.Context, formNumber string) (*models.LoanApplication, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	data, err := store.Get(ctx, "loan_applications/"+formNumber)
	if err != nil {
		return nil, err
	}
	var app models.LoanApplication
	if err := database.FromMap(data, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func runLookup(formNumber string) error {
	app, err := loadApplication(context.Background(), formNumber)
	if err != nil {
		return err
	}

	fmt.Printf("Form Number:  %s\n", utils.FormatFormNumber(app.FormNumber))
	fmt.Printf("Status:       %s\n", app.Status)
	fmt.Printf("Applicant:    %s %s\n", app.ApplicantDetails.FirstName, app.ApplicantDetails.LastName)
	fmt.Printf("Mobile:       %s\n", utils.FormatPhoneNumber(app.ApplicantDetails.MobileNo))
	fmt.Printf("Industry:     %s\n", app.ApplicantDetails.IndustryName)
	fmt.Printf("Loan Amount:  %s\n", utils.FormatCurrency(app.LoanDetails.TotalAmount))
	fmt.Printf("Created By:   %s\n", app.CreatedBy)
	fmt.Printf("Created At:   %s\n", utils.FormatDate(app.CreatedAt))
	if app.SubmittedAt != nil {
		fmt.Printf("Submitted At: %s\n", utils.FormatDate(*app.SubmittedAt))
	}
	fmt.Printf("Documents:    %d\n", len(app.Documents))
	return nil
}

func runVerify(formNumber string) error {
	app, err := loadApplication(context.Background(), formNumber)
	if err != nil {
		return err
	}
	if len(app.Documents) == 0 {
		fmt.Println("No uploaded documents on this application.")
		return nil
	}

	svc := documents.NewService(logger.NewNoOpLogger(), config.UploadsConfig{MaxFileSizeMB: 3})
	corrupted := 0
	for slot, doc := range app.Documents {
		mimeType, payload, err := svc.Decode(doc)
		if err != nil {
			corrupted++
			fmt.Printf("CORRUPT  %-24s %s: %v\n", documents.Label(slot), doc.FileName, err)
			continue
		}
		fmt.Printf("OK       %-24s %s (%s, %d bytes)\n", documents.Label(slot), doc.FileName, mimeType, len(payload))
	}

	if corrupted > 0 {
		return fmt.Errorf("%d of %d documents failed verification", corrupted, len(app.Documents))
	}
	fmt.Printf("All %d documents verified.\n", len(app.Documents))
	return nil
}

func runToken(uid, email, role string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	verifier := auth.NewVerifier(cfg.Auth)
	token, err := verifier.Issue(&models.User{ID: uid, Email: email, Role: models.Role(role)})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func help() {
	fmt.Print(`
Usage: dbinspect <command> [flags]

Commands:
  structure  Report collection counts and the statistics dashboard
  lookup     Print the key fields of one application by form number
  verify     Decode and verify the embedded uploads of one application
  token      Issue a signed bearer token for testing against the API
  help       Show this help message

Examples:
  dbinspect structure -format markdown
  dbinspect lookup -form LMS202508280001
  dbinspect verify -form LMS202508280001
  dbinspect token -uid admin-1 -email admin@example.com -role admin

Use 'dbinspect <command> -h' for more information about a command.
`)
}
