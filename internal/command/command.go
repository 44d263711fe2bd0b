// Package command implements the Command Encoder (spec §4.8): it
// materializes metric records into fully qualified command records
// ready for the caller's downstream store.
package command

import (
	"strconv"
)

// Kind identifies the downstream store operation a Record requests.
type Kind string

const (
	KindBitmap      Kind = "Bitmap"
	KindIncrement   Kind = "Increment"
	KindIncrementBy Kind = "IncrementBy"
)

// Bucket identifies which time window a Record's key is tagged with.
type Bucket string

const (
	BucketDaily  Bucket = "d"
	BucketHourly Bucket = "h"
)

// Record is a fully qualified command record (spec §3, §6): Kind names
// the store operation, Key is the colon-joined grammar string, and
// exactly one of TextPayload / NumericPayload is meaningful, selected by
// Kind (Bitmap carries text, the two counter kinds carry a number).
type Record struct {
	Kind           Kind
	Key            string
	TextPayload    string
	NumericPayload float64
}

// EncodeBitmap builds the bitmap key grammar:
//   bmp:<bucket>:<unix_ts>:<field>
func EncodeBitmap(bucket Bucket, ts uint64, field, element string) Record {
	return Record{
		Kind:        KindBitmap,
		Key:         join("bmp", string(bucket), formatTS(ts), field),
		TextPayload: element,
	}
}

// EncodeAdd builds the counter-increment key grammar:
//   add:<bucket>:<unix_ts>:<pattern>:<values>
func EncodeAdd(bucket Bucket, ts uint64, pattern, valuesStr string, amount float64) Record {
	return Record{
		Kind:           KindIncrement,
		Key:            join("add", string(bucket), formatTS(ts), pattern, valuesStr),
		NumericPayload: amount,
	}
}

// EncodeAddValue builds the sum-aggregation key grammar:
//   adv:<bucket>:<unix_ts>:<value_field>:<pattern>:<values>
//
// The six-segment form is intentional (spec §4.8): it keeps the
// value-field discoverable by key-prefix scans independent of which
// compound pattern it accompanies.
func EncodeAddValue(bucket Bucket, ts uint64, valueField, pattern, valuesStr string, amount float64) Record {
	return Record{
		Kind:           KindIncrementBy,
		Key:            join("adv", string(bucket), formatTS(ts), valueField, pattern, valuesStr),
		NumericPayload: amount,
	}
}

func formatTS(ts uint64) string { return strconv.FormatUint(ts, 10) }

func join(parts ...string) string {
	n := len(parts) - 1 // separators
	for _, p := range parts {
		n += len(p)
	}
	var b []byte
	b = make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			b = append(b, ':')
		}
		b = append(b, p...)
	}
	return string(b)
}
