package scope

import (
	"github.com/uptrace/bun"

	"edu-crm/internal/models"
)

// Scope is the caller's identity as seen by data-visibility rules. It is
// built fresh per request from the authenticated principal and never
// persisted.
type Scope struct {
	UserID   string
	Role     string
	RegionID string
	BranchID string
}

// Fields names the scoping columns an entity table carries. An empty
// column name means that axis does not apply to the entity type.
type Fields struct {
	Counsellor       string
	AdmissionOfficer string
	Partner          string
	Region           string
	Branch           string
}

// Row carries the scoping values of a single fetched entity, for the
// single-entity visibility check. Axes the entity lacks stay empty.
type Row struct {
	CounsellorID       string
	AdmissionOfficerID string
	Partner            string
	RegionID           string
	BranchID           string
}

type axis int

const (
	axisCounsellor axis = iota
	axisAdmissionOfficer
	axisPartner
	axisRegion
	axisBranch
)

type predicate struct {
	axis   axis
	column string
	value  string
}

type verdict int

const (
	verdictAll verdict = iota
	verdictNone
	verdictFilter
)

// resolve evaluates the role rules in priority order: ownership roles
// first (counselor, admission officer, partner), then the manager roles,
// then generic branch/region attachment, then unrestricted fallback.
// First matching rule wins; the generic attachment rule is the one place
// where branch and region are enforced together.
func resolve(sc Scope, f Fields) (verdict, []predicate) {
	switch sc.Role {
	case models.RoleCounselor:
		if f.Counsellor != "" {
			return verdictFilter, []predicate{{axisCounsellor, f.Counsellor, sc.UserID}}
		}
	case models.RoleAdmissionOfficer:
		if f.AdmissionOfficer != "" {
			return verdictFilter, []predicate{{axisAdmissionOfficer, f.AdmissionOfficer, sc.UserID}}
		}
	case models.RolePartner:
		if f.Partner != "" {
			return verdictFilter, []predicate{{axisPartner, f.Partner, sc.UserID}}
		}
	case models.RoleBranchManager:
		// No branch attachment means no visibility, never a fallback to all.
		if sc.BranchID == "" || f.Branch == "" {
			return verdictNone, nil
		}
		return verdictFilter, []predicate{{axisBranch, f.Branch, sc.BranchID}}
	case models.RoleRegionalManager:
		if sc.RegionID == "" || f.Region == "" {
			return verdictNone, nil
		}
		return verdictFilter, []predicate{{axisRegion, f.Region, sc.RegionID}}
	}

	if sc.Role == models.RoleSuperAdmin {
		return verdictAll, nil
	}

	// Remaining roles are constrained by whatever organizational attachment
	// they carry. Branch and region are independent constraints: a caller
	// with both must match on both.
	var preds []predicate
	if sc.BranchID != "" && f.Branch != "" {
		preds = append(preds, predicate{axisBranch, f.Branch, sc.BranchID})
	}
	if sc.RegionID != "" && f.Region != "" {
		preds = append(preds, predicate{axisRegion, f.Region, sc.RegionID})
	}
	if len(preds) > 0 {
		return verdictFilter, preds
	}
	return verdictAll, nil
}

// Apply narrows a collection query to the rows the caller may see. A
// caller with no visible rows gets an always-false predicate, so the
// query still runs and returns an empty result rather than an error.
func Apply(q *bun.SelectQuery, sc Scope, f Fields) *bun.SelectQuery {
	v, preds := resolve(sc, f)
	switch v {
	case verdictAll:
		return q
	case verdictNone:
		return q.Where("1 = 0")
	default:
		for _, p := range preds {
			q = q.Where("? = ?", bun.Ident(p.column), p.value)
		}
		return q
	}
}

// Allows reports whether the caller may see a single fetched row. Callers
// translate a false result into the same not-found signal as a missing
// row, so existence is never disclosed.
func Allows(sc Scope, f Fields, row Row) bool {
	v, preds := resolve(sc, f)
	switch v {
	case verdictAll:
		return true
	case verdictNone:
		return false
	}
	for _, p := range preds {
		if rowValue(row, p.axis) != p.value {
			return false
		}
	}
	return true
}

func rowValue(row Row, a axis) string {
	switch a {
	case axisCounsellor:
		return row.CounsellorID
	case axisAdmissionOfficer:
		return row.AdmissionOfficerID
	case axisPartner:
		return row.Partner
	case axisRegion:
		return row.RegionID
	case axisBranch:
		return row.BranchID
	}
	return ""
}
