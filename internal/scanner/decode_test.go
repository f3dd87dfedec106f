package scanner

import (
	"bytes"
	"image"
	"image/jpeg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("decodeFrame", func() {
	It("decodes PNG frames", func() {
		img, err := decodeFrame(testFramePNG(), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(32))
	})

	It("decodes JPEG frames", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 16, 16)), nil)).To(Succeed())

		img, err := decodeFrame(buf.Bytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(16))
	})

	It("rejects empty data", func() {
		_, err := decodeFrame(nil, "image/png")
		Expect(err).To(HaveOccurred())
	})

	It("rejects data that is not an image", func() {
		_, err := decodeFrame([]byte("definitely not pixels"), "image/png")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("isHEICFormat", func() {
	heicHeader := func(brand string) []byte {
		return append([]byte{0, 0, 0, 24, 'f', 't', 'y', 'p'}, []byte(brand)...)
	}

	It("recognizes HEIC brands in the ftyp box", func() {
		Expect(isHEICFormat(heicHeader("heic"))).To(BeTrue())
		Expect(isHEICFormat(heicHeader("heif"))).To(BeTrue())
		Expect(isHEICFormat(heicHeader("mif1"))).To(BeTrue())
	})

	It("rejects other brands", func() {
		Expect(isHEICFormat(heicHeader("avif"))).To(BeFalse())
	})

	It("rejects short data", func() {
		Expect(isHEICFormat([]byte("tiny"))).To(BeFalse())
	})
})
