package cmd

import (
	"net/url"

	"github.com/nam-ha/human-detection-app/internal/annotate"
	"github.com/nam-ha/human-detection-app/internal/config"
	"github.com/nam-ha/human-detection-app/internal/detection"
	"github.com/nam-ha/human-detection-app/internal/imagecodec"
	"github.com/nam-ha/human-detection-app/internal/prediction"
	"github.com/nam-ha/human-detection-app/internal/query"
	"github.com/spf13/cobra"
)

func newPredictionService(cfg *config.Config, detector detection.Detector, images prediction.ImageSaver, records prediction.Recorder) *prediction.Service {
	return prediction.NewService(
		detector,
		imagecodec.NewValidator(cfg.MinImageSize, cfg.MaxImageSize, nil),
		annotate.NewRenderer(annotate.DefaultLineWidth),
		images,
		records,
	)
}

// historyFlags are the history filters shared by the history and invoke commands
type historyFlags struct {
	queryID      string
	timeMin      string
	timeMax      string
	numHumansMin string
	numHumansMax string
	pageIndex    string
	pageSize     string
}

func (f *historyFlags) register(cmd *cobra.Command, paged bool) {
	cmd.Flags().StringVar(&f.queryID, "query-id", "", "Only the record with this id")
	cmd.Flags().StringVar(&f.timeMin, "time-min", "", "Earliest request time (YYYY-MM-DD_HH-MM-SS)")
	cmd.Flags().StringVar(&f.timeMax, "time-max", "", "Latest request time (YYYY-MM-DD_HH-MM-SS)")
	cmd.Flags().StringVar(&f.numHumansMin, "num-humans-min", "", "Minimum number of humans")
	cmd.Flags().StringVar(&f.numHumansMax, "num-humans-max", "", "Maximum number of humans")
	if paged {
		cmd.Flags().StringVar(&f.pageIndex, "page-index", "", "Page to return, starting at 1")
		cmd.Flags().StringVar(&f.pageSize, "page-size", "", "Records per page")
	}
}

// parse validates the flags the same way the API validates query parameters
func (f *historyFlags) parse() (query.HistoryQuery, error) {
	return query.ParseHistory(url.Values{
		"query_id":       {f.queryID},
		"time_min":       {f.timeMin},
		"time_max":       {f.timeMax},
		"num_humans_min": {f.numHumansMin},
		"num_humans_max": {f.numHumansMax},
		"page_index":     {f.pageIndex},
		"page_size":      {f.pageSize},
	})
}
