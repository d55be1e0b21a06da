package entity

import (
	"sort"
	"strings"
	"time"

	"github.com/mbeoliero/relay/pkg/constant"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// GenTempMessageId builds the local id of an optimistic message from its
// client correlation id. The prefix cannot collide with persisted UUIDs.
func GenTempMessageId(clientMsgId string) string {
	return constant.TempMessagePrefix + clientMsgId
}

// IsTempMessageId checks if a message id denotes an optimistic local row
func IsTempMessageId(id string) bool {
	return strings.HasPrefix(id, constant.TempMessagePrefix)
}

// SortMessages sorts messages ascending by created_at, ties broken by id
func SortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt != msgs[j].CreatedAt {
			return msgs[i].CreatedAt < msgs[j].CreatedAt
		}
		return msgs[i].Id < msgs[j].Id
	})
}

// DedupeMessages removes rows with duplicate ids, keeping the first
// occurrence. Input order is preserved.
func DedupeMessages(msgs []*Message) []*Message {
	seen := make(map[string]struct{}, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if _, ok := seen[m.Id]; ok {
			continue
		}
		seen[m.Id] = struct{}{}
		out = append(out, m)
	}
	return out
}
