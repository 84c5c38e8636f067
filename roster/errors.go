package roster

import "errors"

var ErrRosterEntryNotFound = errors.New("roster entry not found")
