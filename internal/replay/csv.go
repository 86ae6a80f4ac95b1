package replay

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/plife507/TRADE-sub002/internal/errors"
	"github.com/plife507/TRADE-sub002/internal/models"
)

// csvBar is one row of an OHLCV export. The idx column is optional; rows
// without it are numbered in file order.
type csvBar struct {
	Idx    *int    `csv:"idx"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// LoadCSV reads a bar series from a CSV file with an open,high,low,close,
// volume header (idx optional). Bars must come out with strictly increasing
// indexes or a SequenceError is returned.
func LoadCSV(path string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("csv", path, "opening bar file", err)
	}
	defer f.Close()

	var rows []*csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.NewDataError("csv", path, "parsing bar file", err)
	}
	if len(rows) == 0 {
		return nil, errors.NewDataError("csv", path, "no bars in file", errors.ErrDataNotFound)
	}

	bars := make([]models.Bar, 0, len(rows))
	lastIdx := -1
	for i, row := range rows {
		idx := i
		if row.Idx != nil {
			idx = *row.Idx
		}
		if idx <= lastIdx {
			return nil, &errors.SequenceError{Timeframe: "csv", LastIdx: lastIdx, GotIdx: idx}
		}
		if row.High < row.Low {
			return nil, errors.NewDataError("csv", path,
				fmt.Sprintf("row %d: high %g below low %g", i+1, row.High, row.Low), nil)
		}
		lastIdx = idx
		bars = append(bars, models.Bar{
			Idx:    idx,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return bars, nil
}
