package store

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/tabeth/fakesqs/models"
)

// MD5OfBody returns the hex encoded MD5 digest of a message body.
func MD5OfBody(body string) string {
	sum := md5.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// MD5OfAttributes returns the hex encoded MD5 digest of a set of message
// attributes, or the empty string when there are none.
func MD5OfAttributes(attributes map[string]models.MessageAttributeValue) string {
	if len(attributes) == 0 {
		return ""
	}
	sum := md5.Sum(hashAttributes(attributes))
	return hex.EncodeToString(sum[:])
}

// hashAttributes creates a deterministic byte representation of message attributes
// for hashing: names sorted, then length-prefixed name, data type, a transport
// byte and the length-prefixed value.
func hashAttributes(attributes map[string]models.MessageAttributeValue) []byte {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		v := attributes[k]

		writeLengthPrefixed(&buf, []byte(k))
		writeLengthPrefixed(&buf, []byte(v.DataType))

		switch {
		case strings.HasPrefix(v.DataType, "String"), strings.HasPrefix(v.DataType, "Number"):
			buf.WriteByte(1) // String transport type
			var s string
			if v.StringValue != nil {
				s = *v.StringValue
			}
			writeLengthPrefixed(&buf, []byte(s))
		case strings.HasPrefix(v.DataType, "Binary"):
			buf.WriteByte(2) // Binary transport type
			writeLengthPrefixed(&buf, v.BinaryValue)
		}
	}
	return buf.Bytes()
}

func writeLengthPrefixed(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.BigEndian, int32(len(b)))
	buf.Write(b)
}
