package usecase

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/zkbackup/internal/domain"
	"github.com/semmidev/zkbackup/internal/infrastructure/clock"
	"github.com/semmidev/zkbackup/internal/infrastructure/logger"
)

func TestObjectKey(t *testing.T) {
	Convey("ObjectKey", t, func() {
		Convey("It should append the zero-padded date and extension", func() {
			at := time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)
			So(ObjectKey("backups/zookeeper-snapshot", at), ShouldEqual, "backups/zookeeper-snapshot-20260307.tgz")
		})

		Convey("It should use the calendar day of the given location", func() {
			at := time.Date(2026, 3, 7, 23, 30, 0, 0, time.UTC)
			tokyo := time.FixedZone("JST", 9*60*60)
			So(ObjectKey("zookeeper-snapshot", at.In(tokyo)), ShouldEqual, "zookeeper-snapshot-20260308.tgz")
		})
	})
}

func TestStaging(t *testing.T) {
	Convey("Given a Staging area", t, func() {
		fs := afero.NewMemMapFs()
		staging := NewStaging(fs, "/tmp/zk")

		Convey("Path should be unique per invocation", func() {
			So(staging.Path("a"), ShouldEqual, "/tmp/zk/zookeeper-snapshot-a.tgz")
			So(staging.Path("a"), ShouldNotEqual, staging.Path("b"))
		})

		Convey("Prepare should create the directory", func() {
			path, err := staging.Prepare("a")
			So(err, ShouldBeNil)
			So(path, ShouldEqual, staging.Path("a"))
			exists, _ := afero.DirExists(fs, "/tmp/zk")
			So(exists, ShouldBeTrue)
		})

		Convey("Reading a missing file should be a local I/O error", func() {
			_, err := staging.Read("/tmp/zk/missing.tgz")
			So(domain.KindOf(err), ShouldEqual, domain.KindLocalIO)
		})

		Convey("Removing a missing file should be a local I/O error", func() {
			err := staging.Remove("/tmp/zk/missing.tgz")
			So(domain.KindOf(err), ShouldEqual, domain.KindLocalIO)
		})

		Convey("Prepare should reject IDs that leave the staging directory", func() {
			for _, id := range []string{"", "../../../etc/cron.d/x", "a/b", `a\b`, "..", "x..y"} {
				_, err := staging.Prepare(id)
				So(domain.KindOf(err), ShouldEqual, domain.KindConfig)
			}
			exists, _ := afero.DirExists(fs, "/tmp/zk")
			So(exists, ShouldBeFalse)
		})

		Convey("Prepare should accept Lambda request IDs", func() {
			path, err := staging.Prepare("c0ffee00-1234-4abc-8def-0123456789ab")
			So(err, ShouldBeNil)
			So(filepath.Dir(path), ShouldEqual, "/tmp/zk")
		})

		Convey("Prepare on a read-only filesystem should fail", func() {
			_, err := NewStaging(afero.NewReadOnlyFs(fs), "/ro").Prepare("a")
			So(domain.KindOf(err), ShouldEqual, domain.KindLocalIO)
		})
	})
}

func TestBackup(t *testing.T) {
	Convey("Given a Backup use case", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC)
		payload := []byte{0x1f, 0x8b, 0x08, 0x00, 'z', 'k'}

		fs := newCountingFs()
		staging := NewStaging(fs, "/tmp/zk")
		fetcher := &fakeFetcher{data: payload}
		store := newFakeStore()
		notifier := &recordingNotifier{}
		log := logger.NewNop()

		newBackup := func(strict bool) *Backup {
			return NewBackup(
				fetcher,
				store,
				staging,
				NewPruner(store, "backups/", 10, log),
				notifier,
				clock.Fixed(now),
				log,
				BackupOptions{KeyPrefix: "backups/zookeeper-snapshot", Strict: strict},
			)
		}
		stagingPath := staging.Path("inv-1")

		Convey("When every step succeeds", func() {
			store.add("backups/zookeeper-snapshot-20261001.tgz", now.AddDate(0, 0, -15))
			store.add("backups/zookeeper-snapshot-20261011.tgz", now.AddDate(0, 0, -5))

			result := newBackup(false).Execute(ctx, "inv-1")

			Convey("It should upload under the dated key", func() {
				So(result.StatusCode, ShouldEqual, http.StatusOK)
				So(result.Body, ShouldEqual, "Snapshot uploaded successfully: backups/zookeeper-snapshot-20261016.tgz")
				So(result.Key, ShouldEqual, "backups/zookeeper-snapshot-20261016.tgz")
				So(result.InvocationID, ShouldEqual, "inv-1")
				So(result.Kind, ShouldEqual, domain.Kind(""))
				So(result.Warnings, ShouldBeEmpty)
			})

			Convey("It should store the exact fetched bytes", func() {
				got, err := store.Get(ctx, result.Key)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, payload)
			})

			Convey("It should remove the staging file once", func() {
				So(fs.removes[stagingPath], ShouldEqual, 1)
				exists, _ := afero.Exists(fs, stagingPath)
				So(exists, ShouldBeFalse)
			})

			Convey("It should prune old backups", func() {
				So(result.Pruned, ShouldEqual, 1)
				So(store.objects, ShouldNotContainKey, "backups/zookeeper-snapshot-20261001.tgz")
				So(store.objects, ShouldContainKey, "backups/zookeeper-snapshot-20261011.tgz")
			})

			Convey("It should notify with the result", func() {
				So(len(notifier.results), ShouldEqual, 1)
				So(notifier.results[0], ShouldResemble, result)
			})
		})

		Convey("When the invocation ID contains a path", func() {
			result := newBackup(false).Execute(ctx, "../../etc/cron.d/x")

			Convey("It should fail before fetching", func() {
				So(result.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(result.Kind, ShouldEqual, domain.KindConfig)
				So(fetcher.calls, ShouldEqual, 0)
				So(len(fs.removes), ShouldEqual, 0)
			})
		})

		Convey("When the snapshot is empty", func() {
			fetcher.data = []byte{}
			result := newBackup(false).Execute(ctx, "inv-1")

			Convey("It should still upload an empty object", func() {
				So(result.OK(), ShouldBeTrue)
				got, err := store.Get(ctx, result.Key)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 0)
			})
		})

		Convey("When the admin endpoint answers with a non-200 status", func() {
			fetcher.err = &domain.Error{Kind: domain.KindRemoteFetch, Op: "get snapshot", StatusCode: http.StatusServiceUnavailable}
			result := newBackup(false).Execute(ctx, "inv-1")

			Convey("It should fail without uploading", func() {
				So(result.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(result.Kind, ShouldEqual, domain.KindRemoteFetch)
				So(result.Body, ShouldEqual, "Error: get snapshot: unexpected status 503")
				So(len(store.puts), ShouldEqual, 0)
				So(store.listCalls, ShouldEqual, 0)
			})

			Convey("It should notify the failure", func() {
				So(len(notifier.results), ShouldEqual, 1)
				So(notifier.results[0].OK(), ShouldBeFalse)
			})
		})

		Convey("When the fetch hits a transport error", func() {
			fetcher.err = domain.E(domain.KindTransport, "get snapshot", errBoom)
			result := newBackup(false).Execute(ctx, "inv-1")

			Convey("It should report a transport failure", func() {
				So(result.Kind, ShouldEqual, domain.KindTransport)
				So(result.Body, ShouldEqual, "Error: get snapshot: boom")
			})
		})

		Convey("When the store rejects the upload", func() {
			store.putErr = domain.E(domain.KindStorageWrite, "put fake://bucket/backups/zookeeper-snapshot-20261016.tgz", errBoom)
			result := newBackup(false).Execute(ctx, "inv-1")

			Convey("It should fail with a storage write error", func() {
				So(result.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(result.Kind, ShouldEqual, domain.KindStorageWrite)
				So(result.Key, ShouldEqual, "")
			})

			Convey("It should attempt to remove the staging file exactly once", func() {
				So(fs.removes[stagingPath], ShouldEqual, 1)
				exists, _ := afero.Exists(fs, stagingPath)
				So(exists, ShouldBeFalse)
			})

			Convey("It should not prune", func() {
				So(store.listCalls, ShouldEqual, 0)
			})
		})

		Convey("When removing the staging file fails after upload", func() {
			fs.removeErr = errBoom

			Convey("In lenient mode", func() {
				result := newBackup(false).Execute(ctx, "inv-1")

				Convey("It should succeed with a warning", func() {
					So(result.OK(), ShouldBeTrue)
					So(len(result.Warnings), ShouldEqual, 1)
					So(result.Warnings[0], ShouldContainSubstring, "remove staging file")
					So(fs.removes[stagingPath], ShouldEqual, 1)
				})
			})

			Convey("In strict mode", func() {
				result := newBackup(true).Execute(ctx, "inv-1")

				Convey("It should fail with a local I/O error but keep the key", func() {
					So(result.OK(), ShouldBeFalse)
					So(result.Kind, ShouldEqual, domain.KindLocalIO)
					So(result.Key, ShouldEqual, "backups/zookeeper-snapshot-20261016.tgz")
					So(store.objects, ShouldContainKey, result.Key)
				})
			})
		})

		Convey("When pruning fails after upload", func() {
			store.listErr = domain.E(domain.KindStorageList, "list fake://bucket/backups/", errBoom)

			Convey("In lenient mode", func() {
				result := newBackup(false).Execute(ctx, "inv-1")

				Convey("It should succeed with a prune warning", func() {
					So(result.OK(), ShouldBeTrue)
					So(len(result.Warnings), ShouldEqual, 1)
					So(result.Warnings[0], ShouldContainSubstring, "prune backups/")
				})
			})

			Convey("In strict mode", func() {
				result := newBackup(true).Execute(ctx, "inv-1")

				Convey("It should fail with a retention error", func() {
					So(result.StatusCode, ShouldEqual, http.StatusInternalServerError)
					So(result.Kind, ShouldEqual, domain.KindRetention)
					So(result.Body, ShouldStartWith, "Error: prune backups/")
				})
			})
		})

		Convey("When the notifier fails", func() {
			notifier.err = errBoom
			result := newBackup(false).Execute(ctx, "inv-1")

			Convey("It should not change the result", func() {
				So(result.OK(), ShouldBeTrue)
			})
		})
	})
}
