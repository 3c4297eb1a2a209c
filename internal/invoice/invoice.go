package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/domain"
)

// Writer renders plain-text invoices under the workspace. It is the default
// Invoicer wired into the pipeline.
type Writer struct {
	Dir      string
	Business string
	Wallet   string
	Currency string
	Now      func() time.Time
}

func New(workspace string, cfg *config.Config) Writer {
	if workspace == "" {
		workspace = "."
	}
	return Writer{
		Dir:      filepath.Join(workspace, ".dealflow", "invoices"),
		Business: cfg.Business.Name,
		Wallet:   cfg.Business.WalletAddress,
		Currency: cfg.Business.Currency,
		Now:      time.Now,
	}
}

// Issue writes the invoice file and returns the invoice number.
func (w Writer) Issue(ctx context.Context, p domain.Project) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}
	number := "INV-" + p.Reference
	now := w.Now
	if now == nil {
		now = time.Now
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE %s\n", number)
	fmt.Fprintf(&b, "Date: %s\n", now().UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "From: %s\n", w.Business)
	fmt.Fprintf(&b, "To:   %s\n\n", p.ClientName)
	fmt.Fprintf(&b, "Project: %s (%s)\n", p.Title, p.Reference)
	if p.EstimatedHours > 0 {
		fmt.Fprintf(&b, "Estimated effort: %.1f hours\n", p.EstimatedHours)
	}
	fmt.Fprintf(&b, "\nFixed price: %.2f %s\n", p.FixedPrice, w.Currency)
	fmt.Fprintf(&b, "Total due:   %.2f %s\n", p.FixedPrice, w.Currency)
	if w.Wallet != "" {
		fmt.Fprintf(&b, "\nPay to wallet: %s\n", w.Wallet)
	}
	path := filepath.Join(w.Dir, p.Reference+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return number, nil
}
