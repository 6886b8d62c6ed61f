package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/bomanihosts/backend/internal/config"
	"github.com/bomanihosts/backend/internal/domain/contact"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// contactAdmin is the part of contact.Service the admin commands use.
type contactAdmin interface {
	List(ctx context.Context, filter contact.ListFilter) ([]contact.Message, error)
	Resolve(ctx context.Context, id int64) error
}

// openContacts is swapped in tests.
var openContacts = func(ctx context.Context, cfg config.Config) (contactAdmin, func(), error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	// Admin commands never submit, so no notifier is needed.
	svc := contact.NewService(store.Contacts(), nil, cfg.Email.SendTimeout, config.NewLogger(cfg.Logging))
	return svc, closeStore, nil
}

type contactRecord struct {
	ID         int64     `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Email      string    `json:"email" yaml:"email"`
	Phone      string    `json:"phone,omitempty" yaml:"phone,omitempty"`
	Subject    string    `json:"subject" yaml:"subject"`
	Message    string    `json:"message" yaml:"message"`
	IsResolved bool      `json:"is_resolved" yaml:"is_resolved"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

func newContactsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Review contact form submissions",
	}

	var (
		unresolved bool
		limit      int
		format     string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List contact messages, newest first",
		Long: `List stored contact messages ordered by received time, newest first.

Examples:
  server contacts list
  server contacts list --unresolved --limit 20
  server contacts list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (table, json, yaml)", format)
			}
			admin, closeFn, err := openContactAdmin(cmd, root)
			if err != nil {
				return err
			}
			defer closeFn()

			msgs, err := admin.List(commandContext(cmd), contact.ListFilter{UnresolvedOnly: unresolved, Limit: limit})
			if err != nil {
				return fmt.Errorf("list contacts: %w", err)
			}
			return printContacts(cmd.OutOrStdout(), msgs, format)
		},
	}
	list.Flags().BoolVar(&unresolved, "unresolved", false, "only show messages not yet resolved")
	list.Flags().IntVar(&limit, "limit", contact.DefaultListLimit, "maximum number of messages")
	list.Flags().StringVar(&format, "format", "table", "output format (table, json, yaml)")

	resolve := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a contact message as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid contact id %q", args[0])
			}
			admin, closeFn, err := openContactAdmin(cmd, root)
			if err != nil {
				return err
			}
			defer closeFn()

			auditLog := newAuditLogger(cmd)
			resourceID := strconv.FormatInt(id, 10)
			if err := admin.Resolve(commandContext(cmd), id); err != nil {
				auditLog.LogFailure("contact.resolve", auditActor(), "contact_message", resourceID, err)
				if errors.Is(err, contact.ErrNotFound) {
					return fmt.Errorf("contact message %d not found", id)
				}
				return fmt.Errorf("resolve contact: %w", err)
			}
			auditLog.LogSuccess("contact.resolve", auditActor(), "contact_message", resourceID, nil)
			fmt.Fprintf(cmd.OutOrStdout(), "contact message %d resolved\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, resolve)
	return cmd
}

func openContactAdmin(cmd *cobra.Command, root *rootOptions) (contactAdmin, func(), error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	return openContacts(commandContext(cmd), cfg)
}

func printContacts(out io.Writer, msgs []contact.Message, format string) error {
	records := make([]contactRecord, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, contactRecord{
			ID:         m.ID,
			Name:       m.Name,
			Email:      m.Email,
			Phone:      m.Phone,
			Subject:    m.Subject,
			Message:    m.Body,
			IsResolved: m.IsResolved,
			CreatedAt:  m.CreatedAt.UTC(),
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(records)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, "No contact messages.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintf(w, "ID\tRECEIVED\tFROM\tSUBJECT\tRESOLVED\n")
	_, _ = fmt.Fprintf(w, "--\t--------\t----\t-------\t--------\n")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s <%s>\t%s\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Name, r.Email, truncate(r.Subject, 40), yesNo(r.IsResolved))
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
