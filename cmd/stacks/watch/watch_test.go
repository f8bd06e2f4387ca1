package watchcmder_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	watchcmder "github.com/papercomputeco/stacks/cmd/stacks/watch"
)

func TestWatchCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Watch Command Suite")
}

var _ = Describe("NewWatchCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := watchcmder.NewWatchCmd()
		Expect(cmd.Use).To(Equal("watch <dir>"))
	})

	It("registers the api-target flag", func() {
		cmd := watchcmder.NewWatchCmd()
		Expect(cmd.Flags().Lookup("api-target")).NotTo(BeNil())
	})

	It("requires exactly one argument", func() {
		cmd := watchcmder.NewWatchCmd()
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).NotTo(Succeed())
	})

	It("rejects a path that is not a directory", func() {
		cmd := watchcmder.NewWatchCmd()
		cmd.Flags().Bool("debug", false, "")
		cmd.Flags().String("config-dir", "", "")
		cmd.SetArgs([]string{"/nonexistent/drop/dir"})
		Expect(cmd.Execute()).NotTo(Succeed())
	})
})
