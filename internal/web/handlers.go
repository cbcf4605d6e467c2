package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/transitconv/internal/convert"
	"github.com/JonMunkholm/transitconv/internal/feed"
	"github.com/JonMunkholm/transitconv/internal/logging"
	"github.com/JonMunkholm/transitconv/internal/network"
	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// ConversionResponse is the JSON summary of a stored conversion.
type ConversionResponse struct {
	JobID     string           `json:"job_id"`
	Direction string           `json:"direction"`
	Rows      map[string]int   `json:"rows"`
	Defaulted int              `json:"defaulted"`
	Notices   []string         `json:"notices,omitempty"`
	Stored    map[string]int64 `json:"stored,omitempty"`
	Duration  string           `json:"duration"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	templ.Handler(indexPage(s.tables, s.cfg.Upload.MaxFileSize)).ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":      "ok",
		"conversions": s.limiter.status(),
		"sink":        s.sink != nil,
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.tables)
}

// handleNetworkToFeed converts an uploaded network file and answers with
// the feed zip.
func (s *Server) handleNetworkToFeed(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.release()

	data, name, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logger := logging.WithFields(r.Context(), "file", name, "bytes", len(data))

	src, err := network.Read(bytes.NewReader(data), s.cfg.NetworkOptions(logger)...)
	if err != nil {
		respondError(w, r, err)
		return
	}
	dst := feed.NewArchive("", feed.WithLogger(logger))

	report, err := s.converter.NetworkToFeed(src, dst)
	if err != nil {
		respondError(w, r, err)
		return
	}
	notices := noticeStrings(src.Notices())
	logger.Info("network converted",
		"job_id", report.JobID,
		"rows", report.Rows,
		"defaulted", report.Defaulted,
		"notices", len(notices),
	)

	if wantsStore(r) {
		s.store(w, r, report, notices, dst.Tables())
		return
	}

	var buf bytes.Buffer
	if _, err := dst.WriteTo(&buf); err != nil {
		respondError(w, r, err)
		return
	}
	setReportHeaders(w, report, len(notices))
	attach(w, "application/zip", replaceExt(name, ".zip"), buf.Bytes())
}

// handleFeedToNetwork converts an uploaded feed zip and answers with the
// network file. The optional "epsg" parameter selects the output
// coordinate system.
func (s *Server) handleFeedToNetwork(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.release()

	data, name, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logger := logging.WithFields(r.Context(), "file", name, "bytes", len(data))

	opts := s.cfg.NetworkOptions(logger)
	if code := r.FormValue("epsg"); code != "" {
		n, err := projection.ParseCode(code)
		if err != nil {
			respondError(w, r, err)
			return
		}
		opts = append(opts, network.WithSourceEPSG(n))
	}

	src, err := feed.FromBytes(data, feed.WithLogger(logger))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer src.Close()

	dst, err := network.New("", opts...)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := s.converter.FeedToNetwork(src, dst)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logger.Info("feed converted",
		"job_id", report.JobID,
		"rows", report.Rows,
		"defaulted", report.Defaulted,
	)

	if wantsStore(r) {
		s.store(w, r, report, nil, dst.Tables())
		return
	}

	var buf bytes.Buffer
	if _, err := dst.WriteTo(&buf); err != nil {
		respondError(w, r, err)
		return
	}
	setReportHeaders(w, report, 0)
	attach(w, "text/plain; charset="+s.cfg.Network.WriteEncoding, replaceExt(name, ".net"), buf.Bytes())
}

// readUpload returns the contents and base name of the "file" form field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, "", fmt.Errorf("%w: %v", errFileTooLarge, err)
		}
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", errNoFile
		}
		return nil, "", err
	}
	defer file.Close()

	data, err := readAll(file, header)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty file %q", table.ErrValidation, header.Filename)
	}
	return data, filepath.Base(header.Filename), nil
}

func readAll(f multipart.File, h *multipart.FileHeader) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, h.Size))
	if _, err := io.Copy(buf, f); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return buf.Bytes(), nil
}

// store hands the converted tables to the sink and answers with a summary.
func (s *Server) store(w http.ResponseWriter, r *http.Request, report convert.Report, notices []string, tables []*table.Table) {
	if s.sink == nil {
		respondError(w, r, fmt.Errorf("%w: no database configured", table.ErrValidation))
		return
	}
	stored, err := s.sink.Populate(r.Context(), tables...)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, ConversionResponse{
		JobID:     report.JobID,
		Direction: string(report.Direction),
		Rows:      report.Rows,
		Defaulted: report.Defaulted,
		Notices:   notices,
		Stored:    stored,
		Duration:  report.Duration.String(),
	})
}

func wantsStore(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.FormValue("store"))
	return ok
}

func noticeStrings(ns []network.Notice) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.String())
	}
	return out
}

func setReportHeaders(w http.ResponseWriter, report convert.Report, notices int) {
	w.Header().Set("X-Conversion-Job", report.JobID)
	w.Header().Set("X-Conversion-Defaulted", strconv.Itoa(report.Defaulted))
	w.Header().Set("X-Conversion-Notices", strconv.Itoa(notices))
}

func attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// replaceExt swaps the extension of an uploaded name, falling back to a
// generic name for empty input.
func replaceExt(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" || base == "." {
		base = "converted"
	}
	return base + ext
}
