package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/export"
)

type exportBookingLister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type exportUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders lab day sheets as CSV or PDF downloads.
type ExportService struct {
	bookings exportBookingLister
	labs     labRepository
	users    exportUserReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(bookings exportBookingLister, labs labRepository, users exportUserReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		bookings: bookings,
		labs:     labs,
		users:    users,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

var daySheetHeaders = []string{"Start", "End", "Status", "Booked By", "Purpose"}

// LabDaySheet renders every booking of one lab on one date.
func (s *ExportService) LabDaySheet(ctx context.Context, labID, date, format string) (*ExportFile, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	lab, err := s.labs.FindByID(ctx, labID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch lab")
	}

	bookings, _, err := s.bookings.List(ctx, models.BookingFilter{LabID: labID, Date: date, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].StartTime < bookings[j].StartTime })

	names := make(map[string]string)
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		name, ok := names[b.UserID]
		if !ok {
			name = b.UserID
			if user, uerr := s.users.FindByID(ctx, b.UserID); uerr == nil {
				name = user.FullName
			}
			names[b.UserID] = name
		}
		rows = append(rows, map[string]string{
			"Start":     b.StartTime,
			"End":       b.EndTime,
			"Status":    string(b.Status),
			"Booked By": name,
			"Purpose":   b.Purpose,
		})
	}

	dataset := export.Dataset{Headers: daySheetHeaders, Rows: rows}
	basename := fmt.Sprintf("%s-bookings-%s", slugify(lab.Name), date)

	switch format {
	case "pdf":
		title := fmt.Sprintf("%s bookings %s", lab.Name, date)
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: basename + ".pdf"}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: basename + ".csv"}, nil
	}
}

func slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "lab"
	}
	return slug
}
