package servecmder

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docchat/pkg/config"
)

var _ = Describe("Serve Command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "docchat-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		GinkgoT().Setenv("DOCCHAT_CONFIG", "")
		GinkgoT().Setenv("PORT", "")
		os.Unsetenv("PORT")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	freeAddr := func() string {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()
		return ln.Addr().String()
	}

	It("applies flags over the loaded configuration", func() {
		cfg := config.Default()
		cmder := &serveCommander{listenAddr: "127.0.0.1:9999", dbPath: "a.sqlite", turnsPerMinute: 0}
		cfg.Server.TurnsPerMinute = 30
		cmder.applyFlags(cfg)

		Expect(cfg.Server.ListenAddr).To(Equal("127.0.0.1:9999"))
		Expect(cfg.Server.DBPath).To(Equal("a.sqlite"))
		Expect(cfg.Server.TurnsPerMinute).To(Equal(0))
	})

	It("keeps configured values when flags are unset", func() {
		cfg := config.Default()
		cfg.Server.TurnsPerMinute = 30
		cmder := &serveCommander{turnsPerMinute: -1}
		cmder.applyFlags(cfg)

		Expect(cfg.Server.ListenAddr).To(Equal("0.0.0.0:7860"))
		Expect(cfg.Server.TurnsPerMinute).To(Equal(30))
	})

	It("serves until the context is canceled", func() {
		addr := freeAddr()
		dbPath := filepath.Join(tmpDir, "archive.sqlite")

		ctx, cancel := context.WithCancel(context.Background())
		cmd := NewServeCmd()
		cmd.SetArgs([]string{"--listen", addr, "--db", dbPath})

		done := make(chan error, 1)
		go func() {
			done <- cmd.ExecuteContext(ctx)
		}()

		Eventually(func() (int, error) {
			resp, err := http.Get("http://" + addr + "/health")
			if err != nil {
				return 0, err
			}
			defer resp.Body.Close()
			return resp.StatusCode, nil
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(http.StatusOK))

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		Expect(dbPath).To(BeAnExistingFile())
	})
})
