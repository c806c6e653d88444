package scanner

import (
	"bytes"
	"context"
	"image"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/image/tiff"
)

func testDevice() SANEDevice {
	return SANEDevice{
		ID:             "office",
		DeviceName:     "airscan:e1:HP ScanJet Flow N7000 snw1",
		AdditionalArgs: []string{"--ald=yes"},
		Sources: Sources{
			ADFSingle: "ADF",
			ADFDuplex: "ADF Duplex",
		},
		Timeout: time.Minute,
	}
}

func encodeTestTIFF(width, height int) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	Expect(tiff.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("SANE", func() {
	var backend *SANE

	BeforeEach(func() {
		backend = NewSANE(testDevice())
	})

	Describe("Capabilities", func() {
		It("should derive capabilities from the configured sources", func() {
			caps := backend.Capabilities()
			Expect(caps.ADFSingle).To(BeTrue())
			Expect(caps.ADFDuplex).To(BeTrue())
			Expect(caps.Flatbed).To(BeFalse())
		})
	})

	Describe("Acquire", func() {
		var (
			recordedArgs []string
			stdout       []byte
			stderr       string
			exitCode     int
			page         *Page
			err          error
			opts         AcquireOptions
		)

		BeforeEach(func() {
			recordedArgs = nil
			stdout = encodeTestTIFF(8, 12)
			stderr = ""
			exitCode = 0
			opts = AcquireOptions{Mode: ADFSingleSided, Resolution: ResolutionNormal}

			backend.run = func(ctx context.Context, args []string) ([]byte, []byte, int, error) {
				recordedArgs = args
				return stdout, []byte(stderr), exitCode, nil
			}
		})

		JustBeforeEach(func() {
			page, err = backend.Acquire(context.Background(), opts)
		})

		When("scanimage succeeds", func() {
			It("should return the page", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(page.Data).To(Equal(stdout))
				Expect(page.Width).To(Equal(8))
				Expect(page.Height).To(Equal(12))
				Expect(page.DPI).To(Equal(300))
				Expect(page.BackendID).To(Equal("office"))
			})

			It("should pass the configured device and source", func() {
				Expect(recordedArgs).To(ContainElement("airscan:e1:HP ScanJet Flow N7000 snw1"))
				Expect(recordedArgs).To(ContainElement("--source=ADF"))
				Expect(recordedArgs).To(ContainElement("--resolution=300"))
				Expect(recordedArgs).To(ContainElement("--ald=yes"))
			})
		})

		When("a high resolution is requested", func() {
			BeforeEach(func() {
				opts.Resolution = ResolutionHigh
			})

			It("should pass 600 dpi", func() {
				Expect(recordedArgs).To(ContainElement("--resolution=600"))
			})
		})

		When("the duplex source is requested", func() {
			BeforeEach(func() {
				opts.Mode = ADFDuplex
			})

			It("should use the duplex source string", func() {
				Expect(recordedArgs).To(ContainElement("--source=ADF Duplex"))
			})
		})

		When("the requested source is not configured", func() {
			BeforeEach(func() {
				opts.Mode = FlatbedMulti
			})

			It("should return ErrUnsupportedMode", func() {
				Expect(err).To(MatchError(ErrUnsupportedMode))
				Expect(page).To(BeNil())
			})
		})

		When("the feeder runs out of documents", func() {
			BeforeEach(func() {
				exitCode = saneStatusNoDocs
			})

			It("should return ErrFeedEmpty", func() {
				Expect(err).To(MatchError(ErrFeedEmpty))
			})
		})

		When("the feeder jams", func() {
			BeforeEach(func() {
				exitCode = saneStatusJammed
			})

			It("should return ErrDeviceJam", func() {
				Expect(err).To(MatchError(ErrDeviceJam))
			})
		})

		When("the device is busy", func() {
			BeforeEach(func() {
				exitCode = saneStatusDeviceBusy
			})

			It("should return ErrDeviceUnavailable", func() {
				Expect(err).To(MatchError(ErrDeviceUnavailable))
			})
		})

		When("scanimage produces no image data", func() {
			BeforeEach(func() {
				stdout = nil
			})

			It("should return ErrDeviceUnavailable", func() {
				Expect(err).To(MatchError(ErrDeviceUnavailable))
			})
		})
	})

	Describe("classifyScanError", func() {
		It("should map SANE status codes", func() {
			Expect(classifyScanError(saneStatusNoDocs, "")).To(MatchError(ErrFeedEmpty))
			Expect(classifyScanError(saneStatusJammed, "")).To(MatchError(ErrDeviceJam))
			Expect(classifyScanError(saneStatusDeviceBusy, "")).To(MatchError(ErrDeviceUnavailable))
			Expect(classifyScanError(saneStatusIOError, "")).To(MatchError(ErrDeviceUnavailable))
		})

		It("should classify frontend errors by stderr content", func() {
			Expect(classifyScanError(1, "scanimage: no SANE devices found")).To(MatchError(ErrDeviceUnavailable))
			Expect(classifyScanError(1, "scanimage: open of device failed: Couldn't open device")).To(MatchError(ErrDeviceUnavailable))
			Expect(classifyScanError(1, "scanimage: sane_start: Document feeder jammed")).To(MatchError(ErrDeviceJam))
			Expect(classifyScanError(1, "scanimage: sane_start: Document feeder out of documents")).To(MatchError(ErrFeedEmpty))
		})

		It("should keep unknown failures generic", func() {
			err := classifyScanError(1, "scanimage: something odd")
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(ErrFeedEmpty))
			Expect(err).NotTo(MatchError(ErrDeviceJam))
			Expect(err).NotTo(MatchError(ErrDeviceUnavailable))
		})
	})

	Describe("buildScanimageArgs", func() {
		It("should default to 300 dpi and A4", func() {
			args := buildScanimageArgs(testDevice(), "ADF", 0)
			Expect(args).To(ContainElement("--resolution=300"))
			Expect(args).To(ContainElements("-x", "210", "-y", "297"))
			Expect(args).To(ContainElement("--format=tiff"))
		})
	})
})
