package build

import "time"

// ProviderPollInterval is how often we probe for the wallet provider while it
// is absent.
const ProviderPollInterval = time.Second

// AccountPollInterval is how often we re-read the active account once a
// provider has been found.
const AccountPollInterval = 3 * time.Second

// MinEntityID is the smallest valid registry id. Registry counters start at
// zero and the first assigned id is 1; ids are never reused.
const MinEntityID = 1

// UnitPrecision is the number of base units in one display unit.
const UnitPrecision = 18
