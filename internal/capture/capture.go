// Package capture periodically samples frames from a source, detects the
// most prominent face and publishes cropped face detections.
package capture

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/face-explorer/internal/embedding"
	"github.com/kozaktomas/face-explorer/internal/imgutil"
)

// ErrNoFace is reported when a sampled frame contains no detectable face.
var ErrNoFace = errors.New("no face detected in frame")

// FrameSource supplies frames to sample, typically a camera or screen grabber.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
}

// Detector finds faces in encoded image bytes.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*embedding.FaceResponse, error)
}

// Detection is one successful face capture: the face crop scaled to the
// configured size plus the embedding the detector computed for it.
type Detection struct {
	Face      embedding.Face
	Crop      image.Image
	Embedding []float32
	At        time.Time
}

type Config struct {
	Interval      time.Duration
	DetectMaxSize int // longest frame side sent to the detector
	CropSize      int // output face crop edge length
}

// Coordinator drives the sampling loop. At most one detection runs at a
// time; ticks that fire while a detection is in flight are dropped
// rather than queued, so a slow detector never builds a backlog.
type Coordinator struct {
	source FrameSource
	det    Detector
	cfg    Config

	busy    atomic.Bool
	sampled atomic.Int64
	dropped atomic.Int64
	noFace  atomic.Int64

	events chan Detection
}

func NewCoordinator(source FrameSource, det Detector, cfg Config) *Coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.DetectMaxSize <= 0 {
		cfg.DetectMaxSize = 640
	}
	if cfg.CropSize <= 0 {
		cfg.CropSize = 160
	}
	return &Coordinator{
		source: source,
		det:    det,
		cfg:    cfg,
		events: make(chan Detection, 1),
	}
}

// Events delivers successful detections. The channel buffers a single
// detection; an unread event is replaced by a newer one.
func (c *Coordinator) Events() <-chan Detection {
	return c.events
}

// Run samples frames until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.busy.CompareAndSwap(false, true) {
				c.dropped.Add(1)
				continue
			}
			frame, err := c.source.Frame(ctx)
			if err != nil {
				c.busy.Store(false)
				continue
			}
			c.sampled.Add(1)
			go func() {
				defer c.busy.Store(false)
				c.detectOne(ctx, frame)
			}()
		}
	}
}

// DetectOnce runs a single detection against one frame, outside the
// sampling loop. Used for explicit one-shot captures.
func (c *Coordinator) DetectOnce(ctx context.Context, frame image.Image) (*Detection, error) {
	return c.detect(ctx, frame)
}

func (c *Coordinator) detectOne(ctx context.Context, frame image.Image) {
	d, err := c.detect(ctx, frame)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			c.noFace.Add(1)
		}
		return
	}

	// keep only the newest unread detection
	select {
	case c.events <- *d:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- *d:
		default:
		}
	}
}

func (c *Coordinator) detect(ctx context.Context, frame image.Image) (*Detection, error) {
	detInput, scale := downscaleForDetection(frame, c.cfg.DetectMaxSize)

	data, err := imgutil.EncodeJPEG(detInput)
	if err != nil {
		return nil, err
	}

	resp, err := c.det.DetectFaces(ctx, data)
	if err != nil {
		return nil, err
	}

	face, ok := embedding.LargestFace(resp.Faces)
	if !ok {
		return nil, ErrNoFace
	}

	// map the bbox back onto the original frame
	box := scaleBBox(face.BBox, scale, frame.Bounds())
	crop := imaging.Crop(frame, box)
	crop = imaging.Resize(crop, c.cfg.CropSize, c.cfg.CropSize, imaging.Lanczos)

	return &Detection{
		Face:      face,
		Crop:      crop,
		Embedding: face.Embedding,
		At:        time.Now(),
	}, nil
}

// Stats reports sampling counters: frames handed to the detector,
// ticks dropped while busy and frames without a face.
func (c *Coordinator) Stats() (sampled, dropped, noFace int64) {
	return c.sampled.Load(), c.dropped.Load(), c.noFace.Load()
}

// downscaleForDetection shrinks a frame so its longest side does not
// exceed maxSize and returns the factor needed to map detector
// coordinates back to the original.
func downscaleForDetection(frame image.Image, maxSize int) (image.Image, float64) {
	b := frame.Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}
	if longest <= maxSize {
		return frame, 1
	}

	scale := float64(longest) / float64(maxSize)
	w := int(float64(b.Dx()) / scale)
	h := int(float64(b.Dy()) / scale)
	return imaging.Resize(frame, w, h, imaging.Linear), scale
}

func scaleBBox(bbox []float64, scale float64, bounds image.Rectangle) image.Rectangle {
	if len(bbox) != 4 {
		return image.Rectangle{}
	}
	r := image.Rect(
		int(bbox[0]*scale),
		int(bbox[1]*scale),
		int(bbox[2]*scale),
		int(bbox[3]*scale),
	)
	return r.Intersect(bounds)
}
