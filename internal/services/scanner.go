package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	clamd "github.com/dutchcoders/go-clamd"
	"go.uber.org/zap"
)

var ErrInfected = errors.New("malware detected")

// ClamScanner streams files to clamd before they are uploaded.
type ClamScanner struct {
	client *clamd.Clamd
	log    *zap.Logger
}

// NewClamScanner takes an address such as tcp://clamav:3310.
func NewClamScanner(address string, log *zap.Logger) *ClamScanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClamScanner{client: clamd.NewClamd(address), log: log.Named("clamav")}
}

func (s *ClamScanner) Ping() error {
	return s.client.Ping()
}

func (s *ClamScanner) Scan(ctx context.Context, file pipeline.LocalFile) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	abort := make(chan bool)
	var once sync.Once
	stop := func() { once.Do(func() { close(abort) }) }
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	results, err := s.client.ScanStream(rc, abort)
	if err != nil {
		return fmt.Errorf("clamd: %w", err)
	}
	if err := verdict(results); err != nil {
		s.log.Warn("file rejected", zap.String("file", file.Name()), zap.Error(err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// verdict drains results and reports the first finding or scanner error.
func verdict(results <-chan *clamd.ScanResult) error {
	var first error
	for res := range results {
		if first != nil {
			continue
		}
		switch res.Status {
		case clamd.RES_FOUND:
			first = fmt.Errorf("%w: %s", ErrInfected, res.Description)
		case clamd.RES_ERROR, clamd.RES_PARSE_ERROR:
			first = fmt.Errorf("clamd: %s", res.Description)
		}
	}
	return first
}
