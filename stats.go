package fastmodbus

import "errors"

// ScanStats counts scans by outcome. A scan that ended because a
// request went unanswered is counted as Ambiguous and also as Timeout.
type ScanStats struct {
	Num struct {
		All       int
		Found     int
		Ambiguous int
		Invalid   int
		Timeout   int
		Other     int
	}
}

func (st *ScanStats) Percentage(num int) float64 {
	if st.Num.All == 0 {
		return 0
	}
	return 100 * float64(num) / float64(st.Num.All)
}

func (st *ScanStats) Update(err error) {
	st.Num.All++
	switch {
	case err == nil:
		st.Num.Found++
	case errors.Is(err, ErrAmbiguous):
		st.Num.Ambiguous++
		if errors.Is(err, ErrTimeout) {
			st.Num.Timeout++
		}
	case MsgInvalid(err):
		st.Num.Invalid++
	case err == ErrTimeout:
		st.Num.Timeout++
	default:
		st.Num.Other++
	}
}
