// Package device holds the pieces shared by the GATT client and server sides:
// the error taxonomy, UUID normalization and characteristic property names.
//
// UUIDs are represented as github.com/go-ble/ble UUIDs. Lookups by string go
// through NormalizeUUID, so "180f", "0x180F" and the full SIG base form
// "0000180f-0000-1000-8000-00805f9b34fb" all resolve to the same key.
package device
