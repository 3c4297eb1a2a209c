package collab_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dealflow/internal/collab"
)

func TestClarifierThinDescriptionAsksQuestions(t *testing.T) {
	c := collab.Clarifier{}
	res, err := c.AnalyzeAndAsk(context.Background(), "make me a website")
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence >= 0.5 {
		t.Fatalf("confidence = %v, want < 0.5 for a thin brief", res.Confidence)
	}
	if len(res.Questions) == 0 {
		t.Fatalf("expected follow-up questions")
	}
	if len(res.Questions) > 5 {
		t.Fatalf("question cap exceeded: %d", len(res.Questions))
	}
}

func TestClarifierRichDescriptionIsConfident(t *testing.T) {
	desc := "Build a Python REST API that must integrate with our existing CRM. " +
		"It needs user login with admin roles, stores customer records in a database " +
		"with moderate data volume, should exclude reporting features, has a hard deadline " +
		"next month with phased milestones, and will be deployed on AWS cloud servers " +
		"with low traffic expected."
	c := collab.Clarifier{}
	res, err := c.AnalyzeAndAsk(context.Background(), desc)
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence < 0.8 {
		t.Fatalf("confidence = %v, want >= 0.8 for a complete brief", res.Confidence)
	}
	if len(res.Questions) > 2 {
		t.Fatalf("questions = %d, want at most 2 when confidence is high", len(res.Questions))
	}
}

func TestClarifierQuestionLimit(t *testing.T) {
	c := collab.Clarifier{MaxQuestions: 2}
	res, err := c.AnalyzeAndAsk(context.Background(), "help")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(res.Questions))
	}
}

func TestSpecGeneratorPricing(t *testing.T) {
	g := collab.SpecGenerator{}
	// api (4h) + database (3h) on top of setup 1h and testing/docs 3.5h
	res, err := g.Generate(context.Background(), "crm", "build an api that stores leads in a database", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHours != 11.5 {
		t.Fatalf("hours = %v, want 11.5", res.TotalHours)
	}
	if res.RequirementCount != 5 {
		t.Fatalf("requirements = %d, want 5", res.RequirementCount)
	}
	// 11.5h * 30 = 345 base, * 1.25 = 431.25, rounded to 430
	if res.FixedPrice != 430 {
		t.Fatalf("price = %v, want 430", res.FixedPrice)
	}
}

func TestSpecGeneratorBudgetHintOverride(t *testing.T) {
	g := collab.SpecGenerator{}
	res, err := g.Generate(context.Background(), "crm", "build an api that stores leads in a database", 600)
	if err != nil {
		t.Fatal(err)
	}
	if res.FixedPrice != 600 {
		t.Fatalf("price = %v, want budget hint 600", res.FixedPrice)
	}

	// a hint below the base cost is ignored
	res, err = g.Generate(context.Background(), "crm", "build an api that stores leads in a database", 100)
	if err != nil {
		t.Fatal(err)
	}
	if res.FixedPrice != 430 {
		t.Fatalf("price = %v, want computed 430", res.FixedPrice)
	}
}

func TestScaffolderScoresByMatchedFeatures(t *testing.T) {
	s := collab.Scaffolder{}
	res, err := s.Execute(context.Background(), "telegram bot with payment and notification alerts")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("expected success: %+v", res)
	}
	// bot, payment, notifications matched
	if res.QAScore != 84 {
		t.Fatalf("score = %d, want 84", res.QAScore)
	}
	if !strings.Contains(res.Code, "Bot Functionality") {
		t.Fatalf("plan missing matched feature:\n%s", res.Code)
	}
}

func TestScaffolderEmptyDescriptionFails(t *testing.T) {
	s := collab.Scaffolder{}
	res, err := s.Execute(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatalf("expected failure for empty description")
	}
}

func TestLedgerOracleMatchesWithinTolerance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.ledger")
	if err := os.WriteFile(path, []byte("50 0xaaa\n199 0xbbb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := collab.LedgerOracle{Path: path}

	res, err := o.CheckPayment(context.Background(), 200, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.TxRef != "0xbbb" {
		t.Fatalf("result = %+v, want 0xbbb within 2%% of 200", res)
	}

	// the matched line is claimed and cannot confirm twice
	res, err = o.CheckPayment(context.Background(), 200, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found {
		t.Fatalf("claimed payment matched again: %+v", res)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "claimed 199 0xbbb") {
		t.Fatalf("ledger not marked claimed:\n%s", data)
	}
}

func TestLedgerOracleOutOfTolerance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.ledger")
	if err := os.WriteFile(path, []byte("180 0xaaa\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := collab.LedgerOracle{Path: path}
	res, err := o.CheckPayment(context.Background(), 200, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found {
		t.Fatalf("180 is outside 2%% of 200, got %+v", res)
	}
}

func TestLedgerOracleMissingFile(t *testing.T) {
	o := collab.LedgerOracle{Path: filepath.Join(t.TempDir(), "nope.ledger")}
	res, err := o.CheckPayment(context.Background(), 200, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found {
		t.Fatalf("missing ledger should find nothing")
	}
}

func TestFileNotifierAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notify.log")
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n := collab.FileNotifier{Path: path, Now: func() time.Time { return fixed }}

	if err := n.Notify(context.Background(), "new lead"); err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), "paid"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "2024-06-01T12:00:00Z new lead\n2024-06-01T12:00:00Z paid\n"
	if string(data) != want {
		t.Fatalf("log = %q, want %q", data, want)
	}
}
