package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// Directory resolves named recipient groups from configuration and registered
// subscribers from the database.
type Directory struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	groups map[string][]string
}

var _ ports.RecipientDirectory = (*Directory)(nil)

// NewDirectory wires the directory. db may be nil when no subscriber store is configured.
func NewDirectory(db *sql.DB, driver string, groups map[string][]string) *Directory {
	return &Directory{db: db, sb: builder(driver), groups: groups}
}

// GetRecipients returns one group, or every group combined for "all".
func (d *Directory) GetRecipients(_ context.Context, selector string) ([]string, error) {
	if selector == config.SelectorAll {
		names := make([]string, 0, len(d.groups))
		for name := range d.groups {
			names = append(names, name)
		}
		slices.Sort(names)

		var combined []string
		for _, name := range names {
			combined = append(combined, d.groups[name]...)
		}
		return dedupe(combined), nil
	}

	group, ok := d.groups[selector]
	if !ok {
		return nil, fmt.Errorf("unknown recipient list %q", selector)
	}
	return dedupe(group), nil
}

// GetRecipientsForFrequency lists active subscribers with a matching cadence, ordered by email.
func (d *Directory) GetRecipientsForFrequency(ctx context.Context, frequency string) ([]domain.Recipient, error) {
	if d.db == nil {
		return nil, nil
	}

	query, args, err := d.sb.
		Select("email", "name", "frequency").
		From(subscribersTable).
		Where(sq.Eq{"frequency": frequency, "active": true}).
		OrderBy("email").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subscriber query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var email, name, freq string
		if err := rows.Scan(&email, &name, &freq); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, domain.Recipient{
			Address:  email,
			Name:     name,
			Metadata: map[string]string{"frequency": freq},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// SaveSubscriber inserts a subscriber or updates the existing row for the same email.
func (d *Directory) SaveSubscriber(ctx context.Context, r domain.Recipient, frequency string, active bool) error {
	if d.db == nil {
		return fmt.Errorf("subscriber store is not configured")
	}

	query, args, err := d.sb.
		Insert(subscribersTable).
		Columns("email", "name", "frequency", "active").
		Values(strings.ToLower(strings.TrimSpace(r.Address)), r.Name, frequency, active).
		Suffix("ON CONFLICT (email) DO UPDATE SET name = excluded.name, frequency = excluded.frequency, active = excluded.active").
		ToSql()
	if err != nil {
		return fmt.Errorf("build subscriber upsert: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	return nil
}

func dedupe(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
