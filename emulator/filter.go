package emulator

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/tabeth/fakesqs/models"
	"github.com/tabeth/fakesqs/store"
)

// System attribute names a receive call can ask for.
const (
	SystemAttributeSentTimestamp = string(types.MessageSystemAttributeNameSentTimestamp)
	SystemAttributeSenderID      = string(types.MessageSystemAttributeNameSenderId)
)

// toResponse renders a reserved message the way a receiver sees it, keeping
// only the requested attributes.
func toResponse(msg models.Message, opts ReceiveOptions) models.ResponseMessage {
	out := models.ResponseMessage{
		Body:          msg.Body,
		MD5OfBody:     msg.MD5OfBody,
		MessageId:     msg.ID,
		ReceiptHandle: msg.ReceiptHandle,
	}

	if attrs := selectMessageAttributes(msg.Attributes, opts.MessageAttributeNames); len(attrs) > 0 {
		out.MessageAttributes = attrs
		out.MD5OfMessageAttributes = optional(store.MD5OfAttributes(attrs))
	}

	for _, name := range opts.AttributeNames {
		all := name == AttributeAll
		if all || name == SystemAttributeSentTimestamp {
			out.Attributes = setAttribute(out.Attributes, SystemAttributeSentTimestamp, strconv.FormatInt(msg.SentTimestamp, 10))
		}
		if (all || name == SystemAttributeSenderID) && msg.SenderId != "" {
			out.Attributes = setAttribute(out.Attributes, SystemAttributeSenderID, msg.SenderId)
		}
	}
	return out
}

func selectMessageAttributes(attrs map[string]models.MessageAttributeValue, names []string) map[string]models.MessageAttributeValue {
	if len(attrs) == 0 || len(names) == 0 {
		return nil
	}
	if slices.Contains(names, AttributeAll) || slices.Contains(names, ".*") {
		return maps.Clone(attrs)
	}
	selected := make(map[string]models.MessageAttributeValue)
	for _, pattern := range names {
		if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
			for name, value := range attrs {
				if strings.HasPrefix(name, prefix+".") {
					selected[name] = value
				}
			}
			continue
		}
		if value, ok := attrs[pattern]; ok {
			selected[pattern] = value
		}
	}
	return selected
}

func setAttribute(m map[string]string, key, value string) map[string]string {
	if m == nil {
		m = make(map[string]string, 2)
	}
	m[key] = value
	return m
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
