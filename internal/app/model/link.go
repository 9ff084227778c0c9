package model

import (
	"errors"
	"strconv"
	"strings"
)

// LinkKeyPrefix namespaces link records in the ephemeral store.
const LinkKeyPrefix = "link:"

// recordSeparator joins the fields of a stored link record.
const recordSeparator = "|"

// ErrCorruptRecord signals a stored value that cannot be decoded into a LinkRecord.
var ErrCorruptRecord = errors.New("corrupt link record")

// LinkRecord is the payment data stored against a minted link identifier.
// Records are write-once and live only as long as the store TTL.
type LinkRecord struct {
	PaymentID string
	OSType    string
	IsWebView bool
}

// LinkKey returns the store key for a link identifier.
func LinkKey(linkID string) string {
	return LinkKeyPrefix + linkID
}

// Encode renders the record as "paymentId|osType|isWebView".
func (r LinkRecord) Encode() string {
	return r.PaymentID + recordSeparator + r.OSType + recordSeparator + strconv.FormatBool(r.IsWebView)
}

// DecodeLinkRecord parses a value written by Encode.
func DecodeLinkRecord(value string) (LinkRecord, error) {
	parts := strings.Split(value, recordSeparator)
	if len(parts) != 3 || parts[0] == "" {
		return LinkRecord{}, ErrCorruptRecord
	}
	isWebView, err := strconv.ParseBool(parts[2])
	if err != nil {
		return LinkRecord{}, ErrCorruptRecord
	}
	return LinkRecord{
		PaymentID: parts[0],
		OSType:    parts[1],
		IsWebView: isWebView,
	}, nil
}

// ContainsSeparator reports whether s would break the record encoding.
func ContainsSeparator(s string) bool {
	return strings.Contains(s, recordSeparator)
}
