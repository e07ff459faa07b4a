package plot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/aescanero/crossplot/pkg/ports"
	"go.uber.org/zap"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	dateColumn = "date"
	dayColumn  = "day"
)

// weekdayOrder ranks weekday labels by their first three letters
var weekdayOrder = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// Config holds renderer settings
type Config struct {
	// ValueColumn names the CSV column plotted on the Y axis, in seconds
	ValueColumn string
	// Width and Height are in inches
	Width  float64
	Height float64
	Logger *zap.Logger
}

// SVGRenderer renders solve times from the data CSV to an SVG chart
type SVGRenderer struct {
	valueColumn string
	width       vg.Length
	height      vg.Length
	logger      *zap.Logger
}

var _ ports.Renderer = (*SVGRenderer)(nil)

// NewSVGRenderer creates a new renderer
func NewSVGRenderer(cfg *Config) *SVGRenderer {
	return &SVGRenderer{
		valueColumn: cfg.ValueColumn,
		width:       vg.Length(cfg.Width) * vg.Inch,
		height:      vg.Length(cfg.Height) * vg.Inch,
		logger:      cfg.Logger,
	}
}

// series is one plotted line
type series struct {
	label  string
	points plotter.XYs
}

// Render reads dataPath and writes the chart to plotPath. The file is replaced
// atomically, so a failed render leaves any previous plot untouched.
func (r *SVGRenderer) Render(ctx context.Context, dataPath, plotPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	set, err := r.readSeries(f)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := r.draw(set, &buf); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeFileAtomic(plotPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write plot file: %w", err)
	}

	r.logger.Info("plot rendered",
		zap.String("plot_path", plotPath),
		zap.Int("series", len(set)),
		zap.Int("bytes", buf.Len()))

	return nil
}

// readSeries parses the CSV into per-weekday series ordered Monday first
func (r *SVGRenderer) readSeries(src io.Reader) ([]series, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("data file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	dateIdx, valueIdx, dayIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case dateColumn:
			dateIdx = i
		case dayColumn:
			dayIdx = i
		case strings.ToLower(r.valueColumn):
			valueIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("data file has no %q column", dateColumn)
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("data file has no %q column", r.valueColumn)
	}

	byLabel := make(map[string]*series)
	total := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data row: %w", err)
		}

		raw := strings.TrimSpace(row[valueIdx])
		if raw == "" {
			// unsolved puzzle
			continue
		}
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", r.valueColumn, raw, err)
		}
		date, err := time.Parse(domain.DateLayout, strings.TrimSpace(row[dateIdx]))
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", row[dateIdx], err)
		}

		label := "solve time"
		if dayIdx >= 0 {
			label = strings.TrimSpace(row[dayIdx])
		}
		s, ok := byLabel[label]
		if !ok {
			s = &series{label: label}
			byLabel[label] = s
		}
		s.points = append(s.points, plotter.XY{X: float64(date.Unix()), Y: seconds / 60})
		total++
	}

	if total == 0 {
		return nil, fmt.Errorf("data file has no solved puzzles")
	}

	out := make([]series, 0, len(byLabel))
	for _, s := range byLabel {
		sort.SliceStable(s.points, func(i, j int) bool { return s.points[i].X < s.points[j].X })
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return labelLess(out[i].label, out[j].label) })

	return out, nil
}

// draw renders the series as SVG into w
func (r *SVGRenderer) draw(set []series, w io.Writer) error {
	p := gplot.New()
	p.Title.Text = "Crossword solve times"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Solve time (minutes)"
	p.X.Tick.Marker = gplot.TimeTicks{Format: domain.DateLayout}
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	for i, s := range set {
		line, points, err := plotter.NewLinePoints(s.points)
		if err != nil {
			return fmt.Errorf("failed to build series %q: %w", s.label, err)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(s.label, line, points)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(r.width, r.height, "svg")
	if err != nil {
		return fmt.Errorf("failed to create svg canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode svg: %w", err)
	}
	return nil
}

// labelLess orders weekdays Monday..Sunday, then any other label alphabetically
func labelLess(a, b string) bool {
	ra, aok := weekdayRank(a)
	rb, bok := weekdayRank(b)
	switch {
	case aok && bok:
		return ra < rb
	case aok:
		return true
	case bok:
		return false
	default:
		return a < b
	}
}

func weekdayRank(label string) (int, bool) {
	l := strings.ToLower(label)
	if len(l) < 3 {
		return 0, false
	}
	rank, ok := weekdayOrder[l[:3]]
	return rank, ok
}

// writeFileAtomic writes data to a temp file beside path and renames it over path
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
