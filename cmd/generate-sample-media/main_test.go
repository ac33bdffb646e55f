package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/studiooh/proposal-export-service/proposal"
)

var _ = Describe("generate-sample-media", func() {
	var (
		out    string
		stdout *bytes.Buffer
	)

	BeforeEach(func() {
		out = filepath.Join(GinkgoT().TempDir(), "media.json")
		stdout = new(bytes.Buffer)
	})

	run := func(args ...string) error {
		cmd := createRootCommand()
		cmd.SetArgs(args)
		cmd.SetOut(stdout)
		cmd.SetErr(new(bytes.Buffer))
		return cmd.Execute()
	}

	It("writes the requested number of items", func() {
		Expect(run("--count", "7", "--out", out, "--image", "media/board.png")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("wrote 7 media items"))

		data, err := os.ReadFile(out)
		Expect(err).ToNot(HaveOccurred())
		var items []proposal.MediaItem
		Expect(json.Unmarshal(data, &items)).To(Succeed())
		Expect(items).To(HaveLen(7))
		Expect(items[0].ID).To(Equal("sample-00001"))
		Expect(items[6].ImageURLs).To(Equal([]string{"media/board.png"}))
	})

	It("rejects a count below one", func() {
		Expect(run("--count", "0", "--out", out)).To(MatchError(ContainSubstring("--count must be positive")))
		Expect(out).ToNot(BeAnExistingFile())
	})

	It("rejects positional arguments", func() {
		Expect(run("extra")).To(HaveOccurred())
	})
})
