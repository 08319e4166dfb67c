package ingest

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/lox/coastscore/internal/metrics"
	"github.com/lox/coastscore/internal/models"
)

// FTPDrop reads scored forecasts that the scoring service publishes as
// files on an FTP server, one JSON document per area.
type FTPDrop struct {
	addr     string
	user     string
	password string
	dir      string
	timeout  time.Duration
}

func NewFTPDrop(addr, user, password, dir string) *FTPDrop {
	if user == "" {
		user, password = "anonymous", "anonymous"
	}
	return &FTPDrop{
		addr:     addr,
		user:     user,
		password: password,
		dir:      dir,
		timeout:  30 * time.Second,
	}
}

func (f *FTPDrop) Name() string     { return "ftp" }
func (f *FTPDrop) Endpoint() string { return f.dir }

// FilePath is the drop file for an area.
func (f *FTPDrop) FilePath(areaID string) string {
	return path.Join(f.dir, areaID+".json")
}

func (f *FTPDrop) Fetch(ctx context.Context, areaID string) (*models.ScoredForecast, []byte, *FetchResult, error) {
	result := &FetchResult{}
	start := time.Now()
	body, err := f.retrieve(ctx, f.FilePath(areaID))
	metrics.UpstreamLatency.WithLabelValues(f.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(f.Name(), areaID, "error").Inc()
		result.Error = err
		return nil, nil, result, err
	}
	metrics.UpstreamCallsTotal.WithLabelValues(f.Name(), areaID, "ok").Inc()
	result.ResponseSize = len(body)

	fc, err := decodeForecast(body)
	if err != nil {
		result.Error = err
		return nil, body, result, err
	}
	result.RecordCount = len(fc.Hours)
	return fc, body, result, nil
}

func (f *FTPDrop) retrieve(ctx context.Context, file string) ([]byte, error) {
	conn, err := ftp.Dial(f.addr, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(f.user, f.password); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(file)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", file, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
