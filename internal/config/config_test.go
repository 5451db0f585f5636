package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-find/internal/indexer"
)

var _ = Describe("Load", func() {
	var (
		dir    string
		rcPath string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		rcPath = filepath.Join(dir, "ade", "find.yaml")
		GinkgoT().Setenv("ADE_FIND_RC", rcPath)
		GinkgoT().Setenv("ADE_FIND_SOCK", filepath.Join(dir, "findd"))
	})

	It("should apply defaults and create the rc file", func() {
		cfg, err := Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.UnixSocket()).To(Equal(filepath.Join(dir, "findd")))
		Expect(cfg.RCPath()).To(Equal(rcPath))
		Expect(cfg.Workers()).To(Equal(4))
		Expect(cfg.FileDepth()).To(Equal(3))
		Expect(cfg.ResultLimit()).To(Equal(8))
		Expect(cfg.DebugLimit()).To(Equal(20))
		Expect(cfg.CacheSize()).To(Equal(256))
		Expect(cfg.MetricsAddr()).To(BeEmpty())
		Expect(cfg.LogLevel()).To(Equal("info"))

		data, err := os.ReadFile(rcPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(rcTemplate))
		Expect(cfg.Roots()).To(Equal(indexer.DefaultRoots().Merge(indexer.Roots{Apps: []string{}, Files: []string{}})))
	})

	It("should read limits from the environment", func() {
		GinkgoT().Setenv("ADE_FIND_WORKERS", "2")
		GinkgoT().Setenv("ADE_FIND_RESULT_LIMIT", "5")
		GinkgoT().Setenv("ADE_FIND_CACHE_SIZE", "-1")
		GinkgoT().Setenv("ADE_FIND_METRICS_ADDR", "127.0.0.1:9464")

		cfg, err := Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Workers()).To(Equal(2))
		Expect(cfg.ResultLimit()).To(Equal(5))
		Expect(cfg.CacheSize()).To(BeZero())
		Expect(cfg.MetricsAddr()).To(Equal("127.0.0.1:9464"))
	})

	It("should reject malformed numbers", func() {
		GinkgoT().Setenv("ADE_FIND_WORKERS", "many")
		_, err := Load()
		Expect(err).To(HaveOccurred())
	})

	It("should append rc roots to the defaults", func() {
		Expect(os.MkdirAll(filepath.Dir(rcPath), 0750)).To(Succeed())
		Expect(os.WriteFile(rcPath, []byte("app_roots:\n  - /opt/apps\nfile_roots:\n  - /srv/share\n  - \"  \"\n"), 0640)).To(Succeed())

		cfg, err := Load()
		Expect(err).NotTo(HaveOccurred())

		roots := cfg.Roots()
		Expect(roots.Apps).To(HaveLen(len(indexer.DefaultRoots().Apps) + 1))
		Expect(roots.Apps[len(roots.Apps)-1]).To(Equal("/opt/apps"))
		Expect(roots.Files[len(roots.Files)-1]).To(Equal("/srv/share"))
	})

	It("should fail on invalid yaml", func() {
		Expect(os.MkdirAll(filepath.Dir(rcPath), 0750)).To(Succeed())
		Expect(os.WriteFile(rcPath, []byte("app_roots: [\n"), 0640)).To(Succeed())

		_, err := Load()
		Expect(err).To(MatchError(ContainSubstring("parse yaml")))
	})

	It("should reload and notify when the rc file changes", func() {
		cfg, err := Load()
		Expect(err).NotTo(HaveOccurred())

		var calls atomic.Int32
		cfg.OnChange(func() { calls.Add(1) })

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)
		Expect(cfg.Run(ctx)).To(Succeed())

		Expect(os.WriteFile(rcPath, []byte("file_roots:\n  - /mnt/new\n"), 0640)).To(Succeed())

		Eventually(calls.Load, 5*time.Second, 20*time.Millisecond).Should(BeNumerically(">=", 1))
		Eventually(func() []string { return cfg.Roots().Files }).Should(ContainElement("/mnt/new"))
	})
})

var _ = Describe("ExpandPath", func() {
	It("should replace a leading tilde with the home directory", func() {
		home, err := os.UserHomeDir()
		Expect(err).NotTo(HaveOccurred())
		Expect(ExpandPath("~/Documents")).To(Equal(filepath.Join(home, "Documents")))
	})

	It("should leave other paths alone", func() {
		Expect(ExpandPath("/srv/~data")).To(Equal("/srv/~data"))
	})
})
