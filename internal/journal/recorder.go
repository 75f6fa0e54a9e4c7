package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONLSink appends trades and equity points as JSON lines to two files.
type JSONLSink struct {
	mu        sync.Mutex
	trades    *os.File
	equity    *os.File
	tradesEnc *json.Encoder
	equityEnc *json.Encoder
}

// NewJSONLSink creates/opens both target files in append mode.
func NewJSONLSink(tradesPath, equityPath string) (*JSONLSink, error) {
	trades, err := openAppend(tradesPath)
	if err != nil {
		return nil, err
	}
	equity, err := openAppend(equityPath)
	if err != nil {
		trades.Close()
		return nil, err
	}
	return &JSONLSink{
		trades:    trades,
		equity:    equity,
		tradesEnc: json.NewEncoder(trades),
		equityEnc: json.NewEncoder(equity),
	}, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// RecordTrade writes a single trade line.
func (s *JSONLSink) RecordTrade(rec TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trades == nil {
		return os.ErrClosed
	}
	return s.tradesEnc.Encode(rec)
}

// RecordEquity writes a single equity line.
func (s *JSONLSink) RecordEquity(point EquityPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.equity == nil {
		return os.ErrClosed
	}
	return s.equityEnc.Encode(point)
}

// Close releases both file handles; safe to call more than once.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	if s.trades != nil {
		first = s.trades.Close()
		s.trades = nil
	}
	if s.equity != nil {
		if err := s.equity.Close(); first == nil {
			first = err
		}
		s.equity = nil
	}
	return first
}
