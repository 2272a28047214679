package watermark_test

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/caronae/caronae-dw/aws/s3"
	"github.com/caronae/caronae-dw/aws/s3/mocks"
	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/caronae/caronae-dw/watermark"
	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Watermark", func() {
	var (
		ctx context.Context
		log *logrus.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		log = logrus.New()
		log.SetOutput(GinkgoWriter)
	})

	Describe("Parse", func() {
		It("parses the persisted layout", func() {
			t := watermark.Parse(log, "  2024-03-07 14:35:00.123456\n")
			Expect(t).To(Equal(time.Date(2024, 3, 7, 14, 35, 0, 123456000, time.Local)))
		})

		It("falls back to the default for empty content", func() {
			Expect(watermark.Parse(log, "")).To(Equal(watermark.Default))
		})

		It("falls back to the default for malformed content", func() {
			Expect(watermark.Parse(log, "yesterday")).To(Equal(watermark.Default))
		})

		It("formats what it parses", func() {
			s := "2023-11-30 23:59:59.000001"
			Expect(watermark.Format(watermark.Parse(log, s))).To(Equal(s))
		})
	})

	Describe("FileStore", func() {
		var (
			dir   string
			store *watermark.FileStore
		)

		BeforeEach(func() {
			var err error
			dir, err = ioutil.TempDir("", "cdw-watermark")
			Expect(err).ToNot(HaveOccurred())
			store = watermark.NewFileStore(log, filepath.Join(dir, "last_etl_run.txt"))
		})

		AfterEach(func() {
			_ = os.RemoveAll(dir)
		})

		It("returns the default when the file is missing", func() {
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(Equal(watermark.Default))
		})

		It("reads back what it writes", func() {
			w := time.Date(2024, 3, 7, 14, 35, 0, 0, time.Local)
			Expect(store.Write(ctx, w)).To(Succeed())
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Equal(w)).To(BeTrue())
			b, err := ioutil.ReadFile(store.Path)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(b)).To(Equal("2024-03-07 14:35:00.000000\n"))
		})

		It("leaves no temp files behind", func() {
			Expect(store.Write(ctx, time.Now())).To(Succeed())
			Expect(store.Write(ctx, time.Now())).To(Succeed())
			files, err := ioutil.ReadDir(dir)
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(HaveLen(1))
		})

		It("returns the default after a reset", func() {
			Expect(store.Write(ctx, time.Now())).To(Succeed())
			Expect(store.Reset(ctx)).To(Succeed())
			Expect(store.Reset(ctx)).To(Succeed()) // resetting twice is fine
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(Equal(watermark.Default))
		})

		It("returns the default for malformed content", func() {
			Expect(ioutil.WriteFile(store.Path, []byte("garbage"), 0600)).To(Succeed())
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(Equal(watermark.Default))
		})

		It("returns the default when the file cannot be read", func() {
			Expect(os.Mkdir(store.Path, 0700)).To(Succeed())
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(Equal(watermark.Default))
		})
	})

	Describe("S3Store", func() {
		var (
			ctrl   *gomock.Controller
			client *mocks.MockBasicClient
			store  *watermark.S3Store
		)

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
			client = mocks.NewMockBasicClient(ctrl)
			store = watermark.NewS3Store(log, client, "last_etl_run.txt")
		})

		AfterEach(func() {
			ctrl.Finish()
		})

		It("maps a missing key to the default", func() {
			client.EXPECT().Get(gomock.Any(), "last_etl_run.txt").Return(nil, s3.ErrKeyNotFound)
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(Equal(watermark.Default))
		})

		It("returns other errors", func() {
			client.EXPECT().Get(gomock.Any(), "last_etl_run.txt").Return(nil, errors.New("access denied"))
			_, err := store.Read(ctx)
			Expect(err).To(HaveOccurred())
		})

		It("reads the saved watermark", func() {
			client.EXPECT().Get(gomock.Any(), "last_etl_run.txt").Return([]byte("2024-01-02 03:04:05.000000\n"), nil)
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)))
		})

		It("writes the formatted watermark", func() {
			w := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
			client.EXPECT().Put(gomock.Any(), "last_etl_run.txt", []byte("2024-01-02 03:04:05.000000\n")).Return(nil)
			Expect(store.Write(ctx, w)).To(Succeed())
		})

		It("deletes the object on reset", func() {
			client.EXPECT().Delete(gomock.Any(), "last_etl_run.txt").Return(nil)
			Expect(store.Reset(ctx)).To(Succeed())
		})
	})

	Describe("WarehouseStore", func() {
		var (
			dw    *shared.MockConnection
			store *watermark.WarehouseStore
		)

		BeforeEach(func() {
			dw = shared.NewMockConnection(log)
			store = watermark.NewWarehouseStore(log, &rdbms.MockConnectionFactory{Warehouse: dw})
		})

		It("subtracts the safety buffer from the newest fact", func() {
			newest := time.Date(2024, 3, 7, 14, 35, 0, 0, time.Local)
			dw.AddResult("max(max_updated_at)", []string{"max"}, []interface{}{newest})
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(BeTemporally("==", newest.Add(-5*time.Minute)))
			q := dw.Queries()[0].Sql
			Expect(q).To(ContainSubstring("from fato_carona"))
			Expect(q).To(ContainSubstring("from fato_interacao_carona"))
			Expect(dw.CloseCount()).To(Equal(1))
		})

		It("reads the newest fact as local wall clock time", func() {
			dw.AddResult("max(max_updated_at)", []string{"max"}, []interface{}{time.Date(2024, 3, 7, 14, 35, 0, 0, time.UTC)})
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Location()).To(Equal(time.Local))
			Expect(t).To(BeTemporally("==", time.Date(2024, 3, 7, 14, 30, 0, 0, time.Local)))
		})

		It("returns the default when the facts are empty", func() {
			dw.AddResult("max(max_updated_at)", []string{"max"}, []interface{}{nil})
			t, err := store.Read(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(t).To(Equal(watermark.Default))
		})

		It("does not write", func() {
			Expect(store.Write(ctx, time.Now())).To(Succeed())
			Expect(store.Reset(ctx)).To(Succeed())
			Expect(dw.Execs()).To(BeEmpty())
		})
	})

	Describe("NewStore", func() {
		It("builds the configured store", func() {
			s, err := watermark.NewStore(log, config.WatermarkSettings{Type: "file", Path: "x.txt"}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(BeAssignableToTypeOf(&watermark.FileStore{}))
			s, err = watermark.NewStore(log, config.WatermarkSettings{Type: "warehouse"}, &rdbms.MockConnectionFactory{})
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(BeAssignableToTypeOf(&watermark.WarehouseStore{}))
			_, err = watermark.NewStore(log, config.WatermarkSettings{Type: "s3", S3Bucket: "b"}, nil)
			Expect(err).To(HaveOccurred())
			_, err = watermark.NewStore(log, config.WatermarkSettings{Type: "ftp"}, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
