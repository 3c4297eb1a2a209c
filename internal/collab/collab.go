// Package collab provides local implementations of the pipeline
// collaborators. They are rule-based and deterministic, suitable for
// running the whole lifecycle from the CLI without external services.
package collab

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dealflow/internal/pipeline"
)

// requirementCategory describes one area of information a lead should cover
// and the follow-up questions to ask when it does not.
type requirementCategory struct {
	key       string
	name      string
	questions []string
}

var requirementCategories = []requirementCategory{
	{
		key:  "scope",
		name: "Scope & Features",
		questions: []string{
			"What are the core features that must be included?",
			"Are there any features that are nice-to-have vs. must-have?",
			"What should the system NOT do (out of scope)?",
		},
	},
	{
		key:  "technical",
		name: "Technical Requirements",
		questions: []string{
			"What programming language/framework preference do you have?",
			"Does this need to integrate with any existing systems?",
			"Are there specific APIs or services that must be used?",
		},
	},
	{
		key:  "data",
		name: "Data & Storage",
		questions: []string{
			"What kind of data will the system handle?",
			"Do you need a database? If so, what volume of data?",
			"Are there any data privacy requirements (GDPR, etc.)?",
		},
	},
	{
		key:  "users",
		name: "Users & Access",
		questions: []string{
			"Who will use this system (single user, team, public)?",
			"Do you need user authentication/login?",
			"Are there different user roles with different permissions?",
		},
	},
	{
		key:  "timeline",
		name: "Timeline & Delivery",
		questions: []string{
			"What is your target deadline for this project?",
			"Can the project be delivered in phases?",
			"Are there any hard deadlines (events, launches)?",
		},
	},
	{
		key:  "hosting",
		name: "Hosting & Infrastructure",
		questions: []string{
			"Where should this be hosted (cloud, your servers, local)?",
			"Do you have existing infrastructure to use?",
			"What's your expected traffic/usage volume?",
		},
	},
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// categoryScores rates how well the description covers each category, 0 to 1.
func categoryScores(description string) map[string]float64 {
	lower := strings.ToLower(description)
	scores := make(map[string]float64, len(requirementCategories))
	for _, cat := range requirementCategories {
		var score float64
		switch cat.key {
		case "scope":
			if containsAny(lower, "feature", "function", "must", "should", "need") {
				score += 0.4
			}
			if len(description) > 200 {
				score += 0.3
			}
			if containsAny(lower, "not", "don't", "exclude", "without") {
				score += 0.2
			}
		case "technical":
			if containsAny(lower, "python", "javascript", "go", "api", "framework", "stack") {
				score += 0.5
			}
			if containsAny(lower, "integrate", "connect", "use", "existing") {
				score += 0.3
			}
		case "data":
			if containsAny(lower, "database", "data", "store", "save", "records") {
				score += 0.5
			}
			if containsAny(lower, "users", "entries", "items", "volume") {
				score += 0.3
			}
		case "users":
			if containsAny(lower, "user", "login", "auth", "access", "team", "public") {
				score += 0.5
			}
			if containsAny(lower, "admin", "role", "permission") {
				score += 0.3
			}
		case "timeline":
			if containsAny(lower, "deadline", "urgent", "asap", "week", "month", "date") {
				score += 0.6
			}
			if containsAny(lower, "phase", "milestone", "priority") {
				score += 0.3
			}
		case "hosting":
			if containsAny(lower, "host", "deploy", "server", "cloud", "aws", "docker") {
				score += 0.6
			}
			if containsAny(lower, "traffic", "scale", "performance") {
				score += 0.3
			}
		}
		if score > 1 {
			score = 1
		}
		scores[cat.key] = score
	}
	return scores
}

// Clarifier asks rule-based follow-up questions, picking from the least
// covered requirement categories first.
type Clarifier struct {
	MaxQuestions int
}

func (c Clarifier) AnalyzeAndAsk(_ context.Context, description string) (pipeline.ClarifyResult, error) {
	max := c.MaxQuestions
	if max <= 0 {
		max = 5
	}
	scores := categoryScores(description)
	var sum float64
	for _, s := range scores {
		sum += s
	}
	confidence := sum / float64(len(scores))

	ordered := make([]requirementCategory, len(requirementCategories))
	copy(ordered, requirementCategories)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scores[ordered[i].key] < scores[ordered[j].key]
	})

	var questions []string
	for _, cat := range ordered {
		if scores[cat.key] < 0.5 && len(questions) < max {
			questions = append(questions, cat.questions[0])
		}
	}
	for _, cat := range ordered {
		if scores[cat.key] >= 0.7 {
			continue
		}
		for _, q := range cat.questions[1:] {
			if len(questions) >= max {
				break
			}
			if !containsString(questions, q) {
				questions = append(questions, q)
			}
		}
	}
	if confidence >= 0.8 && len(description) > 300 && len(questions) > 2 {
		questions = questions[:2]
	}
	return pipeline.ClarifyResult{Questions: questions, Confidence: confidence}, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// specFeature is a keyword-detected work item for the rule-based spec.
type specFeature struct {
	keywords []string
	title    string
	hours    float64
}

var specFeatures = []specFeature{
	{[]string{"api", "rest", "endpoint"}, "API Development", 4},
	{[]string{"database", "db", "store", "save"}, "Database Integration", 3},
	{[]string{"bot", "telegram"}, "Bot Functionality", 4},
	{[]string{"auth", "login", "user"}, "Authentication", 3},
	{[]string{"scraper", "scrap", "crawl", "parse"}, "Data Scraping", 5},
	{[]string{"ai", "gpt", "llm"}, "AI Integration", 4},
	{[]string{"payment", "stripe"}, "Payment Integration", 4},
	{[]string{"email", "notification"}, "Notifications", 2},
}

// SpecGenerator produces a rule-based specification: a setup item, one item
// per detected feature, then testing and documentation. Price is hours at
// the hourly rate plus a 25% margin, rounded to 10.
type SpecGenerator struct {
	HourlyRate float64
}

func (g SpecGenerator) Generate(_ context.Context, title, description string, budgetHint float64) (pipeline.SpecResult, error) {
	rate := g.HourlyRate
	if rate <= 0 {
		rate = 30
	}
	lower := strings.ToLower(description)
	count := 1      // setup
	hours := 1.0    // setup
	for _, f := range specFeatures {
		if containsAny(lower, f.keywords...) {
			count++
			hours += f.hours
		}
	}
	count += 2   // testing, documentation
	hours += 3.5 // testing 2h, documentation 1.5h

	basePrice := hours * rate
	price := float64(int((basePrice*1.25)/10+0.5)) * 10
	if budgetHint >= basePrice {
		price = budgetHint
	}
	return pipeline.SpecResult{RequirementCount: count, TotalHours: hours, FixedPrice: price}, nil
}

// Scaffolder is a code generator that emits a work-plan scaffold instead of
// calling an external engine. The QA score reflects how much of the
// description the scaffold could account for.
type Scaffolder struct{}

func (Scaffolder) Execute(_ context.Context, description string) (pipeline.ExecResult, error) {
	if strings.TrimSpace(description) == "" {
		return pipeline.ExecResult{Success: false, Error: "empty description"}, nil
	}
	lower := strings.ToLower(description)
	var b strings.Builder
	b.WriteString("# Work plan\n\n")
	b.WriteString("- [ ] Project setup\n")
	matched := 0
	for _, f := range specFeatures {
		if containsAny(lower, f.keywords...) {
			fmt.Fprintf(&b, "- [ ] %s\n", f.title)
			matched++
		}
	}
	b.WriteString("- [ ] Testing & QA\n")
	b.WriteString("- [ ] Documentation\n")

	score := 75 + 3*matched
	if score > 95 {
		score = 95
	}
	return pipeline.ExecResult{Success: true, Code: b.String(), QAScore: score}, nil
}

// LedgerOracle matches expected payments against a hand-maintained ledger
// file, one line per payment: "<amount> <tx_ref>". A matched line is
// rewritten with a "claimed" marker so it cannot confirm twice.
type LedgerOracle struct {
	Path         string
	TolerancePct float64
}

func (o LedgerOracle) CheckPayment(_ context.Context, expectedAmount float64, _ string) (pipeline.PaymentResult, error) {
	tolerance := o.TolerancePct
	if tolerance <= 0 {
		tolerance = 2
	}
	data, err := os.ReadFile(o.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return pipeline.PaymentResult{}, nil
		}
		return pipeline.PaymentResult{}, err
	}
	min := expectedAmount * (1 - tolerance/100)
	max := expectedAmount * (1 + tolerance/100)

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == "claimed" {
			continue
		}
		var amount float64
		if _, err := fmt.Sscanf(fields[0], "%f", &amount); err != nil {
			continue
		}
		if amount < min || amount > max {
			continue
		}
		txRef := fields[1]
		lines[i] = "claimed " + line
		if err := os.WriteFile(o.Path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return pipeline.PaymentResult{}, err
		}
		return pipeline.PaymentResult{Found: true, TxRef: txRef}, nil
	}
	return pipeline.PaymentResult{}, nil
}

// FileNotifier appends timestamped messages to a log file, falling back to
// stdlib log when no path is configured.
type FileNotifier struct {
	Path string
	Now  func() time.Time
}

func (n FileNotifier) Notify(_ context.Context, message string) error {
	if n.Path == "" {
		log.Printf("notify: %s", message)
		return nil
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	if err := os.MkdirAll(filepath.Dir(n.Path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(n.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s %s\n", now().UTC().Format(time.RFC3339), message)
	return err
}
