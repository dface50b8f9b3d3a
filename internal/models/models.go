package models

import "time"

// PredictionRecord is one stored prediction
type PredictionRecord struct {
	QueryID         uint      `gorm:"column:query_id;primaryKey;autoIncrement" json:"query_id"`
	Time            time.Time `gorm:"column:time;index" json:"time"`
	QueryImageFile  string    `gorm:"column:query_image_file;size:255" json:"query_image_file"`
	ResultImageFile string    `gorm:"column:result_image_file;size:255" json:"result_image_file"`
	NumHumans       int       `gorm:"column:num_humans;index" json:"num_humans"`
}

func (PredictionRecord) TableName() string { return "predictions" }

// HistoryEntry is the wire form of a record, with time in the history layout
type HistoryEntry struct {
	QueryID         uint   `json:"query_id" yaml:"query_id" parquet:"query_id"`
	Time            string `json:"time" yaml:"time" parquet:"time"`
	QueryImageFile  string `json:"query_image_file" yaml:"query_image_file" parquet:"query_image_file"`
	ResultImageFile string `json:"result_image_file" yaml:"result_image_file" parquet:"result_image_file"`
	NumHumans       int    `json:"num_humans" yaml:"num_humans" parquet:"num_humans"`
}

// TimeLayout is the YYYY-MM-DD_HH-MM-SS format used on the wire
const TimeLayout = "2006-01-02_15-04-05"

// Entry converts a record into its wire form with time in local time
func (r PredictionRecord) Entry() HistoryEntry {
	return HistoryEntry{
		QueryID:         r.QueryID,
		Time:            r.Time.In(time.Local).Format(TimeLayout),
		QueryImageFile:  r.QueryImageFile,
		ResultImageFile: r.ResultImageFile,
		NumHumans:       r.NumHumans,
	}
}

// HistoryPage is a page of history entries plus the unpaginated match count
type HistoryPage struct {
	Total   int64          `json:"total"`
	Records []HistoryEntry `json:"records"`
}

// PredictResponse is the body returned for a successful prediction
type PredictResponse struct {
	B64Image  string `json:"b64image"`
	NumHumans int    `json:"num_humans"`
}

// PredictRequest is the body accepted by the predict endpoint. The threshold
// is a pointer so a missing value can be told apart from zero.
type PredictRequest struct {
	B64Image            string   `json:"b64image"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
}
