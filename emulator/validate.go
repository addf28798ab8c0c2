package emulator

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tabeth/fakesqs/models"
	"github.com/tabeth/fakesqs/store"
)

const (
	// MaxBatchSize is the largest batch a single delete or receive handles.
	MaxBatchSize = 10
	// MaxBodySize is the largest message body accepted, in bytes.
	MaxBodySize = 256 * 1024
	// MaxDelaySeconds is the largest DelaySeconds accepted.
	MaxDelaySeconds = 900
	// MaxMessageAttributes is the number of custom attributes a message may carry.
	MaxMessageAttributes = 10

	maxBatchEntryIDLength  = 80
	maxAttributeNameLength = 256
)

var attributeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// validateBatchIDs checks the conditions that fail a delete batch as a whole.
func validateBatchIDs(ids []string) error {
	if len(ids) == 0 {
		return ErrEmptyBatch
	}
	if len(ids) > MaxBatchSize {
		return ErrTooManyEntries
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" || !isWellFormedEntryID(id) {
			return ErrInvalidBatchEntryID
		}
		if _, dup := seen[id]; dup {
			return ErrBatchEntryIdsNotDistinct
		}
		seen[id] = struct{}{}
	}
	return nil
}

// validateSendEntryID checks the Id of one send batch entry against the Ids
// seen earlier in the same batch. Send entries may omit the Id; a malformed
// or repeated one fails only its own entry.
func validateSendEntryID(id string, seen map[string]struct{}) error {
	if id == "" {
		return nil
	}
	if !isWellFormedEntryID(id) {
		return ErrInvalidBatchEntryID
	}
	if _, dup := seen[id]; dup {
		return ErrBatchEntryIdsNotDistinct
	}
	seen[id] = struct{}{}
	return nil
}

func isWellFormedEntryID(id string) bool {
	return len(id) <= maxBatchEntryIDLength && isValidBatchEntryID(id)
}

// validateMessage checks a single message before it is enqueued.
func validateMessage(body string, delay *int32, attrs map[string]models.MessageAttributeValue) error {
	if len(body) > MaxBodySize {
		return invalid("MessageBody", "body must be shorter than %d bytes", MaxBodySize)
	}
	if !isValidBody(body) {
		return invalid("MessageBody", "body contains characters outside the allowed set")
	}
	if delay != nil && (*delay < 0 || *delay > MaxDelaySeconds) {
		return invalid("DelaySeconds", "value %d must be between 0 and %d", *delay, MaxDelaySeconds)
	}
	if len(attrs) > MaxMessageAttributes {
		return invalid("MessageAttributes", "number of message attributes cannot exceed %d", MaxMessageAttributes)
	}
	for name, attr := range attrs {
		if !isValidMessageAttributeName(name) {
			return invalid("MessageAttributes", "attribute name %q is invalid", name)
		}
		if err := validateAttributeValue(name, attr); err != nil {
			return err
		}
	}
	return nil
}

func validateAttributeValue(name string, attr models.MessageAttributeValue) error {
	if attr.DataType == "" {
		return invalid("MessageAttributes", "DataType of message attribute %q is required", name)
	}
	base, _, _ := strings.Cut(attr.DataType, ".")
	switch base {
	case "String":
		if attr.StringValue == nil {
			return invalid("MessageAttributes", "message attribute %q must contain a StringValue", name)
		}
	case "Number":
		if attr.StringValue == nil {
			return invalid("MessageAttributes", "message attribute %q must contain a StringValue", name)
		}
		if _, err := strconv.ParseFloat(*attr.StringValue, 64); err != nil {
			return invalid("MessageAttributes", "value of message attribute %q is not a number", name)
		}
	case "Binary":
		if len(attr.BinaryValue) == 0 {
			return invalid("MessageAttributes", "message attribute %q must contain a BinaryValue", name)
		}
	default:
		return invalid("MessageAttributes", "DataType %q of message attribute %q is not supported", attr.DataType, name)
	}
	return nil
}

// validateHandle wraps store.ValidateHandle in a ValidationError.
func validateHandle(handle models.ReceiptHandle) error {
	if err := store.ValidateHandle(handle); err != nil {
		return &ValidationError{Field: "ReceiptHandle", Reason: "the receipt handle " + strconv.Quote(string(handle)) + " is not valid", Err: err}
	}
	return nil
}

// isValidMessageAttributeName validates the format of a custom message attribute name.
func isValidMessageAttributeName(name string) bool {
	if name == "" || len(name) > maxAttributeNameLength {
		return false
	}
	// Custom attributes cannot start with "aws." or "amazon.".
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "aws.") || strings.HasPrefix(lower, "amazon.") {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return false
	}
	return attributeNamePattern.MatchString(name)
}

// isValidBatchEntryID allows alphanumerics, hyphens and underscores.
func isValidBatchEntryID(id string) bool {
	for _, r := range id {
		isAlphanumeric := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlphanumeric && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// isValidBody allows #x9 | #xA | #xD | #x20 to #xD7FF | #xE000 to #xFFFD | #x10000 to #x10FFFF.
func isValidBody(body string) bool {
	if !utf8.ValidString(body) {
		return false
	}
	for _, r := range body {
		switch {
		case r == 0x9, r == 0xA, r == 0xD:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}
