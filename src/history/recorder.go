// Package history appends accepted samples to rotated JSON log files so the
// full run can be charted later.
package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockticker/src/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sample is one recorded line: "unix,symbol,value".
type Sample struct {
	Timestamp int64
	Symbol    string
	Value     float64
}

func Format(at time.Time, symbol string, value decimal.Decimal) string {
	return strings.Join([]string{
		strconv.FormatInt(at.Unix(), 10),
		symbol,
		value.String(),
	}, ",")
}

func Parse(msg string) (*Sample, error) {
	params := strings.Split(msg, ",")
	if len(params) != 3 {
		return nil, fmt.Errorf("invalid sample %q", msg)
	}
	timestamp, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid sample timestamp: %w", err)
	}
	value, err := strconv.ParseFloat(params[2], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid sample value: %w", err)
	}
	return &Sample{Timestamp: timestamp, Symbol: params[1], Value: value}, nil
}

type Recorder struct {
	log *zap.Logger
}

func NewRecorder(dir string, maxAge time.Duration) *Recorder {
	return &Recorder{log: common.NewRecordLogger(dir, maxAge)}
}

func (r *Recorder) Record(at time.Time, symbol string, value decimal.Decimal) {
	r.log.Info(Format(at, symbol, value))
}

func (r *Recorder) Sync() error {
	return r.log.Sync()
}
