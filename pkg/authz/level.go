package authz

import "errors"

// Level is an ordered resource permission level. A higher level implies every
// action permitted by lower levels; LevelNone permits nothing and exists so an
// explicit "no access" share can override inherited grants.
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
	LevelAdmin
)

// Resource action names accepted by the decision functions. Matching is exact
// and case-sensitive.
const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionAdmin = "admin"
)

// Allows reports whether this level permits an action requiring the given
// level. LevelNone neither allows nor requires anything.
func (l Level) Allows(required Level) bool {
	return l != LevelNone && required != LevelNone && l >= required
}

// String returns the canonical lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelWrite:
		return "write"
	case LevelAdmin:
		return "admin"
	default:
		return "none"
	}
}

// ParseLevel converts a canonical level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "none":
		return LevelNone, nil
	case "read":
		return LevelRead, nil
	case "write":
		return LevelWrite, nil
	case "admin":
		return LevelAdmin, nil
	default:
		return LevelNone, errors.Join(ErrInvalidLevel, errors.New("unknown level "+s))
	}
}

// ParseAction converts an action string into the level required to perform it.
// Unlike ParseLevel it rejects "none": no action requires no access.
func ParseAction(action string) (Level, error) {
	switch action {
	case ActionRead:
		return LevelRead, nil
	case ActionWrite:
		return LevelWrite, nil
	case ActionAdmin:
		return LevelAdmin, nil
	case "":
		return LevelNone, errors.Join(ErrInvalidAction, errors.New("action is empty"))
	default:
		return LevelNone, errors.Join(ErrInvalidAction, errors.New("unknown action "+action))
	}
}
