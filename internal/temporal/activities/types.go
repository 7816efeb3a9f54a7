package activities

import "github.com/replyhive/replyhive-go/internal/rollover"

// RolloverOutput is the result of a RunRollover activity.
type RolloverOutput struct {
	Report rollover.Report `json:"report"`
}

// PurgeOutput is the result of a PurgeExpired activity.
type PurgeOutput struct {
	Removed int `json:"removed"`
}
