package chatcmder

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Chat Command", func() {
	It("refuses to start without a terminal", func() {
		cmder := &chatCommander{isTerminal: func() bool { return false }}
		Expect(cmder.run(context.Background())).To(MatchError(errNotTerminal))
	})

	It("rejects positional arguments", func() {
		cmd := NewChatCmd()
		cmd.SetArgs([]string{"hello"})
		Expect(cmd.ExecuteContext(context.Background())).To(HaveOccurred())
	})

	It("registers its flags", func() {
		cmd := NewChatCmd()
		for _, name := range []string{"model", "db", "config", "debug", "log-file", "base-url"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})
