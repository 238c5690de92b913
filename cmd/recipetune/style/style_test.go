package style

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Summary", func() {
	BeforeEach(func() {
		prev := lipgloss.ColorProfile()
		lipgloss.SetColorProfile(termenv.TrueColor)
		DeferCleanup(lipgloss.SetColorProfile, prev)
	})

	It("styles the output", func() {
		out := Summary("Generated examples", Row{Key: "run", Value: "abc"})
		Expect(out).To(ContainSubstring("\x1b["))
	})

	It("aligns values past the longest key", func() {
		out := ansi.Strip(Summary("Fine-tuning",
			Row{Key: "status", Value: "succeeded"},
			Row{Key: "fine-tuned model", Value: "ft:base:recipetune:1"},
		))

		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(Equal("Fine-tuning"))
		Expect(strings.Index(lines[1], "succeeded")).To(Equal(strings.Index(lines[2], "ft:base")))
		Expect(lines[2]).To(HavePrefix("  fine-tuned model  "))
	})

	It("prefixes warnings", func() {
		Expect(ansi.Strip(Warn("job failed"))).To(Equal("! job failed"))
	})
})

var _ = Describe("Markdown", func() {
	It("writes markdown unchanged when not on a terminal", func() {
		var buf bytes.Buffer
		Expect(IsTerminal(&buf)).To(BeFalse())
		Expect(Markdown(&buf, "# Artifacts\n")).To(Succeed())
		Expect(buf.String()).To(Equal("# Artifacts\n"))
	})
})
