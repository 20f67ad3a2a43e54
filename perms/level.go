package perms

// Level is an ordinal access level. Higher values grant more privilege.
// The numeric spacing is part of the stored data format and must not change.
type Level int

// Access levels, ascending privilege.
const (
	AccessInvalid  Level = -1
	AccessNone     Level = 0
	AccessOverview Level = 100
	AccessRead     Level = 200
	AccessComment  Level = 300
	AccessModerate Level = 400
	AccessEdit     Level = 500
	AccessAdd      Level = 600
	AccessDelete   Level = 700
	AccessAdmin    Level = 800
)

var levelNames = map[Level]string{
	AccessInvalid:  "Invalid",
	AccessNone:     "No access",
	AccessOverview: "Overview access",
	AccessRead:     "Read access",
	AccessComment:  "Comment access",
	AccessModerate: "Moderate access",
	AccessEdit:     "Edit access",
	AccessAdd:      "Add access",
	AccessDelete:   "Delete access",
	AccessAdmin:    "Admin access",
}

// Name returns the human-readable label for a level.
// Unknown or out-of-range levels map to the "Invalid" label.
func (l Level) Name() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return levelNames[AccessInvalid]
}

// Valid reports whether l is one of the defined access levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// AccessLevelName is a convenience wrapper for callers holding a raw integer.
func AccessLevelName(level int) string {
	return Level(level).Name()
}

// AccessLevels returns every defined level with its label, ascending,
// excluding the Invalid sentinel. Used by UIs rendering level pickers.
func AccessLevels() []LevelName {
	return []LevelName{
		{AccessNone, AccessNone.Name()},
		{AccessOverview, AccessOverview.Name()},
		{AccessRead, AccessRead.Name()},
		{AccessComment, AccessComment.Name()},
		{AccessModerate, AccessModerate.Name()},
		{AccessEdit, AccessEdit.Name()},
		{AccessAdd, AccessAdd.Name()},
		{AccessDelete, AccessDelete.Name()},
		{AccessAdmin, AccessAdmin.Name()},
	}
}

// LevelName pairs a level with its label.
type LevelName struct {
	Level Level  `json:"level"`
	Name  string `json:"name"`
}
