// Package evaluate profiles datasets and measures feature importance,
// publishing the results to the Rasgo web app.
package evaluate

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"rasgo-sdk/internal/tracking"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"strings"
	"time"

	"github.com/pkg/browser"
)

// Publisher receives profile and importance payloads. It is implemented by
// the web API client.
type Publisher interface {
	PostDataframeProfile(ctx context.Context, id string, payload api.ColumnProfiles) error
	PostFeatureImportance(ctx context.Context, id string, payload api.FeatureImportanceStats) error
}

type Evaluator struct {
	publisher    Publisher
	appURL       string
	experimentID string
	tracker      tracking.Tracker
	out          io.Writer
	openURL      func(url string) error
	rng          *rand.Rand
	now          func() time.Time
}

type Option func(*Evaluator)

func WithExperiment(id string) Option {
	return func(e *Evaluator) { e.experimentID = id }
}

func WithTracker(t tracking.Tracker) Option {
	return func(e *Evaluator) { e.tracker = t }
}

// WithOutput sets where console output such as result URLs is written.
func WithOutput(w io.Writer) Option {
	return func(e *Evaluator) { e.out = w }
}

// WithBrowser replaces the function used to open result pages.
func WithBrowser(open func(url string) error) Option {
	return func(e *Evaluator) { e.openURL = open }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Evaluator) { e.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

func New(publisher Publisher, appURL string, opts ...Option) *Evaluator {
	e := &Evaluator{
		publisher: publisher,
		appURL:    strings.TrimSuffix(appURL, "/"),
		tracker:   tracking.NoopTracker{},
		out:       os.Stdout,
		openURL:   browser.OpenURL,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) ExperimentID() string {
	return e.experimentID
}

func (e *Evaluator) SetExperiment(id string) {
	e.experimentID = id
	e.tracker.SetExperiment(id)
}

func (e *Evaluator) Output() io.Writer {
	return e.out
}

func (e *Evaluator) Tracker() tracking.Tracker {
	return e.tracker
}

func (e *Evaluator) track(ctx context.Context, operation string, ds *frame.Dataset, start time.Time, err error) {
	var id string
	if ds != nil {
		id = ds.Attrs[frame.IDAttribute]
	}
	e.tracker.Track(ctx, operation, id, start, err)
}

func (e *Evaluator) timestamp() string {
	return e.now().Format("2006-01-02 15:04:05.000000")
}

func (e *Evaluator) datasetURL(id, page string) string {
	return fmt.Sprintf("%s/dataframes/%s/%s", e.appURL, id, page)
}

func (e *Evaluator) open(url string) {
	if err := e.openURL(url); err != nil {
		fmt.Fprintf(e.out, "Unable to open browser, visit %s\n", url)
	}
}

func confirmColumns(ds *frame.Dataset, columns ...string) error {
	for _, c := range columns {
		if c != "" && !ds.HasColumn(c) {
			return api.ColumnNotFound(c)
		}
	}
	return nil
}
