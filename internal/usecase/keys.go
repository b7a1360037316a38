package usecase

import "time"

// ObjectKey names the backup written at t: prefix-yyyymmdd.tgz. Runs on the
// same calendar day share a key, so the last one wins.
func ObjectKey(prefix string, t time.Time) string {
	return prefix + "-" + t.Format("20060102") + ".tgz"
}
