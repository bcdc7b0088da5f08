package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"faktura/internal/logger"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesPerRequest is the page limit of one synchronous file request
	MaxPagesPerRequest = 5

	// Scope grants access to the Vision API
	Scope = "https://www.googleapis.com/auth/cloud-vision"
)

// fileAnnotator is the part of the Vision client used here.
type fileAnnotator interface {
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
}

// VisionExtractor runs Cloud Vision document text detection on PDFs.
type VisionExtractor struct {
	client fileAnnotator
	closer func() error
	log    zerolog.Logger
}

// NewVisionExtractor creates a Vision client. Credentials come from opts,
// for example option.WithTokenSource.
func NewVisionExtractor(ctx context.Context, opts ...option.ClientOption) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, wrap(op, "", err, "failed to create Vision client")
	}
	return &VisionExtractor{
		client: client,
		closer: client.Close,
		log:    logger.WithComponent("ocr"),
	}, nil
}

// PageTexts implements TextExtractor. Pages are requested in batches of
// MaxPagesPerRequest until the document's page count is reached.
func (v *VisionExtractor) PageTexts(ctx context.Context, path string) ([]string, error) {
	const op = "PageTexts"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap(op, path, err, "failed to read PDF")
	}
	if len(data) > MaxFileSizeBytes {
		return nil, wrap(op, path, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return nil, wrap(op, path, ErrInvalidPDF, "missing PDF header")
	}

	var pages []string
	total := MaxPagesPerRequest
	for first := 1; first <= total; first += MaxPagesPerRequest {
		batch := pageRange(first, min(first+MaxPagesPerRequest-1, total))

		resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{Content: data, MimeType: "application/pdf"},
				Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
				Pages:       batch,
			}},
		})
		if err != nil {
			return nil, wrap(op, path, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
		}

		texts, n, err := fileTexts(resp)
		if err != nil {
			return nil, wrap(op, path, err, "")
		}
		if first == 1 && n > 0 {
			total = n
		}
		pages = append(pages, texts...)
	}

	v.log.Debug().Str("file", path).Int("pages", len(pages)).Msg("OCR complete")
	return pages, nil
}

// fileTexts returns the page texts of the first file response and the
// document's total page count.
func fileTexts(resp *visionpb.BatchAnnotateFilesResponse) ([]string, int, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return nil, 0, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}
	file := resp.Responses[0]
	if file.Error != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrOCRFailed, file.Error.Message)
	}

	texts := make([]string, len(file.Responses))
	for i, page := range file.Responses {
		if page.Error != nil {
			return nil, 0, fmt.Errorf("%w: page %d: %s", ErrOCRFailed, i+1, page.Error.Message)
		}
		if page.FullTextAnnotation != nil {
			texts[i] = page.FullTextAnnotation.Text
		}
	}
	return texts, int(file.TotalPages), nil
}

func pageRange(first, last int) []int32 {
	var pages []int32
	for p := first; p <= last; p++ {
		pages = append(pages, int32(p))
	}
	return pages
}

// Close closes the underlying Vision client.
func (v *VisionExtractor) Close() error {
	if v.closer != nil {
		return v.closer()
	}
	return nil
}
