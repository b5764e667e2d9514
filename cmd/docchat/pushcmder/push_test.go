package pushcmder

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/catalog"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/llm"
	"github.com/papercomputeco/docchat/pkg/merkle"
	"github.com/papercomputeco/docchat/server"
)

var _ = Describe("Push Command", func() {
	var (
		ctx       context.Context
		tmpDir    string
		localPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "docchat-push-test-*")
		Expect(err).NotTo(HaveOccurred())
		localPath = filepath.Join(tmpDir, "local.sqlite")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	makeNode := func(role llm.Role, text string, parent *merkle.Node) *merkle.Node {
		return merkle.NewNode(merkle.MessageBucket(llm.Message{Role: role, Content: text}, "test-model"), parent)
	}

	seed := func(nodes ...*merkle.Node) {
		local, err := merkle.NewSQLiteStorer(localPath)
		Expect(err).NotTo(HaveOccurred())
		defer local.Close()
		for _, n := range nodes {
			_, err := local.Put(ctx, n)
			Expect(err).NotTo(HaveOccurred())
		}
	}

	startServer := func() (string, *merkle.MemoryStorer, func()) {
		serverStorer := merkle.NewMemoryStorer()
		logger := zap.NewNop()

		processor := conversation.NewProcessor(conversation.Config{}, nil, logger)
		srv, err := server.New(server.Config{
			ListenAddr: ":0",
		}, processor, catalog.New(nil, 0, logger), serverStorer, logger)
		Expect(err).NotTo(HaveOccurred())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		go func() {
			_ = srv.RunWithListener(listener)
		}()

		addr := "http://" + listener.Addr().String()
		cleanup := func() {
			_ = srv.Shutdown()
		}
		return addr, serverStorer, cleanup
	}

	push := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewPushCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	It("pushes local nodes to a remote server", func() {
		nodeA := makeNode(llm.RoleUser, "hello from push test", nil)
		nodeB := makeNode(llm.RoleAssistant, "hi back from push test", nodeA)
		seed(nodeA, nodeB)

		addr, serverStorer, cleanup := startServer()
		defer cleanup()

		out, err := push("--sqlite", localPath, addr)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Pushed 2 new nodes (0 already existed, 0 errors)"))

		nodes, err := serverStorer.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(2))
	})

	It("deduplicates on double push", func() {
		seed(makeNode(llm.RoleUser, "dedup push test", nil))

		addr, serverStorer, cleanup := startServer()
		defer cleanup()

		_, err := push("--sqlite", localPath, addr)
		Expect(err).NotTo(HaveOccurred())

		out, err := push("--sqlite", localPath, addr+"/")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Pushed 0 new nodes (1 already existed, 0 errors)"))

		nodes, err := serverStorer.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(1))
	})

	It("pushes in batches", func() {
		var nodes []*merkle.Node
		var parent *merkle.Node
		for _, text := range []string{"one", "two", "three", "four", "five"} {
			parent = makeNode(llm.RoleUser, text, parent)
			nodes = append(nodes, parent)
		}
		seed(nodes...)

		addr, serverStorer, cleanup := startServer()
		defer cleanup()

		_, err := push("--sqlite", localPath, "--batch-size", "2", addr)
		Expect(err).NotTo(HaveOccurred())

		stored, err := serverStorer.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(HaveLen(5))
	})

	It("reports an empty archive", func() {
		seed()

		out, err := push("--sqlite", localPath, "http://127.0.0.1:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No local nodes to push."))
	})

	It("fails when the server is unreachable", func() {
		seed(makeNode(llm.RoleUser, "lost", nil))

		_, err := push("--sqlite", localPath, "http://127.0.0.1:1")
		Expect(err).To(MatchError(ContainSubstring("push failed on batch 0-0")))
	})
})
