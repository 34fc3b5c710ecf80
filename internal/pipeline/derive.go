package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"adenrich/internal/directory"
	"adenrich/internal/util"
)

const (
	ouColumn = "adOu"

	canonicalAttr = "canonicalName"
	managerAttr   = "manager"
	displayAttr   = "displayName"
)

// OuFromCanonical extracts the OU path from a canonical name by dropping the
// leading domain and the trailing leaf: "example.com/Staff/IT/Jane Doe"
// becomes "Staff/IT". Names with no OU segment yield "".
func OuFromCanonical(canonical string) string {
	parts := strings.Split(canonical, "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[1:len(parts)-1], "/")
}

// ComputeDerived fills the columns that are functions of already-fetched
// attributes: adOu from the canonical name, and the manager DN replaced by the
// manager's display name. A manager that cannot be resolved is recorded in
// errlog and the DN stays in place; only context cancellation aborts.
func ComputeDerived(ctx context.Context, rows []Row, attrs []string, client directory.Client, log *zap.Logger, errlog *ErrorLog) error {
	canonical, hasCanonical := findAttr(attrs, canonicalAttr)
	manager, hasManager := findAttr(attrs, managerAttr)
	if !hasCanonical && !hasManager {
		return nil
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		if hasCanonical {
			rows[i].SetExt(ouColumn, OuFromCanonical(rows[i].Cell(AddedColumn(canonical))))
		}
		if !hasManager {
			continue
		}

		col := AddedColumn(manager)
		dn := rows[i].Cell(col)
		if dn == "" {
			continue
		}
		entry, err := client.ResolveDN(ctx, dn, []string{displayAttr})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("manager lookup failed", zap.String("dn", dn), zap.String("error", util.RedactSecrets(err.Error())))
			errlog.Addf("manager lookup failed for %s: %v", dn, err)
			continue
		}
		if entry == nil {
			log.Warn("manager not found", zap.String("dn", dn))
			errlog.Addf("manager not found: %s", dn)
			continue
		}
		if name := entry.Value(displayAttr); name != "" {
			rows[i].SetExt(col, name)
		}
	}
	return nil
}
