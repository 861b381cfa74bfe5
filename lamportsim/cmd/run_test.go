package cmd

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/lamportsim/config"
)

const sampleConfig = `
port: 5001
other_ports: [5002, 5003]
clock_speed: 2
name: c1
experiment_dir: test
`

var _ = Describe("Run command", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "c1.yaml")
		Expect(os.WriteFile(path, []byte(sampleConfig), 0o644)).To(Succeed())
	})

	It("should require a configuration", func() {
		_, err := loadConfigs(nil, 10)

		Expect(err).To(HaveOccurred())
	})

	It("should take the duration from the command line", func() {
		configs, err := loadConfigs([]string{path}, 10)

		Expect(err).NotTo(HaveOccurred())
		Expect(configs).To(HaveLen(1))
		Expect(configs[0].DurationSeconds).To(Equal(10.0))
		Expect(configs[0].OtherPorts).To(Equal([]int{5002, 5003}))
	})

	It("should reject a configuration without a duration", func() {
		_, err := loadConfigs([]string{path}, 0)

		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	It("should refuse a shared port override for several processes", func() {
		other := filepath.Join(filepath.Dir(path), "c2.yaml")
		Expect(os.WriteFile(other, []byte(sampleConfig), 0o644)).To(Succeed())
		GinkgoT().Setenv("LAMPORTSIM_PORT", "6001")

		_, err := loadConfigs([]string{path, other}, 10)
		Expect(err).To(MatchError(config.ErrInvalidConfig))
		Expect(err.Error()).To(ContainSubstring("LAMPORTSIM_PORT"))

		configs, err := loadConfigs([]string{path}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(configs[0].Port).To(Equal(6001))
	})

	It("should map errors to exit codes", func() {
		Expect(exitCode(nil)).To(Equal(0))
		Expect(exitCode(errors.New("failed"))).To(Equal(1))
	})

	It("should build loggers for known levels", func() {
		logger, err := newLogger("debug")
		Expect(err).NotTo(HaveOccurred())
		Expect(logger).NotTo(BeNil())

		_, err = newLogger("loud")
		Expect(err).To(HaveOccurred())
	})
})
