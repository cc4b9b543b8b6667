package ytdlp

// Progress is one progress tick reported during a retrieval
type Progress struct {
	Status          string // "downloading", "finished" or "error"
	DownloadedBytes int64
	TotalBytes      int64 // 0 when unknown
	Percent         int   // -1 when unknown
	Filename        string
}

// ProgressFunc receives progress ticks. A non-nil error aborts the retrieval.
type ProgressFunc func(Progress) error

// newProgress normalizes a tick. Byte counts win over the reported percentage
// since yt-dlp's own figure is missing for fragmented streams.
func newProgress(status string, downloaded, total int, percent float64, filename string) Progress {
	p := Progress{
		Status:          status,
		DownloadedBytes: int64(downloaded),
		TotalBytes:      int64(total),
		Percent:         -1,
		Filename:        filename,
	}

	switch {
	case status == "finished":
		p.Percent = 100
	case p.TotalBytes > 0:
		p.Percent = int(p.DownloadedBytes * 100 / p.TotalBytes)
	case percent > 0:
		p.Percent = int(percent)
	}

	if p.Percent > 100 {
		p.Percent = 100
	}

	return p
}
