package scanner

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/jonfio22/pokemon-card-scanner/internal/pricing"
	"github.com/jonfio22/pokemon-card-scanner/internal/recognize"
)

var _ = Describe("Server", func() {
	var (
		history     *mockHistory
		service     *Service
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	newTestService := func() *Service {
		normalizer := &mockNormalizer{img: image.NewNRGBA(image.Rect(0, 0, 350, 490))}
		recognizer := &mockRecognizer{
			card: &recognize.Card{
				Name:       "Pikachu",
				SetName:    "Jungle",
				Attributes: map[string]any{"name": "Pikachu"},
			},
		}
		valuer := &mockValuer{
			valuation: &pricing.Valuation{
				CardName: "Pikachu",
				SetName:  "Jungle",
				Summary:  &pricing.Summary{Average: 12, Min: 8, Max: 20, Count: 3},
			},
		}
		history = newMockHistory()
		return NewService(normalizer, recognizer, valuer).
			WithHistory(history).
			WithDeps(
				&fixedIDGenerator{id: "scan-7"},
				&fixedTimeSource{now: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)},
			)
	}

	scanBody := func(image string) *bytes.Buffer {
		body, marshalErr := json.Marshal(scanRequest{Image: image})
		Expect(marshalErr).NotTo(HaveOccurred())
		return bytes.NewBuffer(body)
	}

	dataURL := func() string {
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(testFramePNG())
	}

	BeforeEach(func() {
		service = newTestService()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleScan", func() {
		When("a valid data URL is posted", func() {
			It("should return the scan result", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", scanBody(dataURL()))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result ScanResult
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result.Success).To(BeTrue())
				Expect(result.ScanID).To(Equal("scan-7"))
				Expect(result.IdentifiedCard.Name).To(Equal("Pikachu"))
				Expect(result.Pricing.Summary.Count).To(Equal(3))
			})
		})

		When("the request body is not JSON", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", bytes.NewBufferString("not json"))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("no image is provided", func() {
			It("should return status Bad Request with an error message", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", scanBody(""))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var body map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
				Expect(body["error"]).To(Equal("No image provided"))
			})
		})

		When("the base64 payload is invalid", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", scanBody("data:image/png;base64,%%%"))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the payload decodes but is not an image", func() {
			It("should return status Bad Request", func() {
				notAnImage := base64.StdEncoding.EncodeToString([]byte("plain text"))
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", scanBody(notAnImage))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleHistory", func() {
		When("valuations were recorded", func() {
			JustBeforeEach(func() {
				Expect(history.SaveValuation("pikachu_jungle", &pricing.Valuation{
					CardName: "Pikachu",
					SetName:  "Jungle",
				})).To(Succeed())
			})

			It("should return them under the key", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/history/pikachu_jungle")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body struct {
					Key        string               `json:"key"`
					Valuations []*pricing.Valuation `json:"valuations"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
				Expect(body.Key).To(Equal("pikachu_jungle"))
				Expect(body.Valuations).To(HaveLen(1))
			})
		})

		When("history is not configured", func() {
			BeforeEach(func() {
				service = NewService(&mockNormalizer{}, &mockRecognizer{}, &mockValuer{})
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/history/pikachu_jungle")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleScanImage", func() {
		var storage *mockScanStorage

		BeforeEach(func() {
			storage = newMockScanStorage()
			Expect(storage.SaveScan("scan-7", []byte("png bytes"))).To(Succeed())
			service = newTestService().WithStorage(storage)
		})

		When("the scan image exists", func() {
			It("should serve it as PNG", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/scans/scan-7/image")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))

				data, readErr := io.ReadAll(resp.Body)
				Expect(readErr).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("png bytes")))
			})
		})

		When("the scan is unknown", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/scans/nope/image")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleHealth", func() {
		It("should report ok", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["status"]).To(Equal("ok"))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "scanner", Password: "secret"}
		})

		When("credentials are missing", func() {
			It("should return status Unauthorized", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", scanBody(dataURL()))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})

		When("credentials are valid", func() {
			It("should allow the request", func() {
				req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/scan", scanBody(dataURL()))
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", "application/json")
				req.SetBasicAuth("scanner", "secret")

				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("health is probed without credentials", func() {
			It("should still respond", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/health")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})
	})
})
