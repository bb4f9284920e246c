// Package render draws posture overlays onto camera frames and encodes them for streaming.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/wristguard/internal/detector"
	"github.com/ayusman/wristguard/internal/posture"
	"gocv.io/x/gocv"
)

// DefaultQuality is the JPEG quality used for the browser stream.
const DefaultQuality = 80

// Overlay colors. gocv takes RGBA and converts to the Mat's BGR order.
var (
	Red   = color.RGBA{R: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
	Cyan  = color.RGBA{G: 255, B: 255, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	landmarkRadius = 2
	knuckleRadius  = 4
	elbowRing      = 8
	elbowDot       = 6
)

// Banner positions and text for each alert.
var banners = map[posture.Alert]struct {
	text string
	at   image.Point
}{
	posture.WristTooHigh:    {"WRIST TOO HIGH!", image.Pt(50, 50)},
	posture.WristAboveElbow: {"WRIST ABOVE ELBOW!", image.Pt(50, 100)},
}

// Annotate draws landmarks, the elbow marker, the reference line and alert
// banners onto frame in place.
func Annotate(frame *gocv.Mat, lm detector.Landmarks, res posture.Result) {
	if frame == nil || frame.Empty() {
		return
	}
	width, height := frame.Cols(), frame.Rows()

	for i := range lm.Hands {
		drawHand(frame, &lm.Hands[i], width, height)
	}

	if lm.Pose != nil {
		gocv.PutText(frame, "Tracking Active", image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, Green, 2)
	}

	if res.Elbow != nil {
		drawElbow(frame, *res.Elbow)
	}

	if res.ReferenceY != nil {
		y := *res.ReferenceY
		gocv.Line(frame, image.Pt(0, y), image.Pt(width, y), Green, 2)
	}

	for _, alert := range res.Alerts.List() {
		b, ok := banners[alert]
		if !ok {
			continue
		}
		gocv.PutText(frame, b.text, b.at, gocv.FontHersheySimplex, 1, Red, 3)
	}
}

func drawHand(frame *gocv.Mat, hand *detector.HandLandmarks, width, height int) {
	var pts [detector.NumLandmarks]image.Point
	for i, p := range hand.Points {
		pts[i] = p.Pixel(width, height)
	}

	for _, c := range detector.HandConnections {
		gocv.Line(frame, pts[c[0]], pts[c[1]], Cyan, 2)
	}
	for _, pt := range pts {
		gocv.Circle(frame, pt, landmarkRadius, Green, -1)
	}
	for _, idx := range detector.Knuckles {
		gocv.Circle(frame, pts[idx], knuckleRadius, Red, -1)
	}
}

func drawElbow(frame *gocv.Mat, at image.Point) {
	gocv.Circle(frame, at, elbowRing, White, 2)
	gocv.Circle(frame, at, elbowDot, Red, -1)
	gocv.PutText(frame, "Elbow", image.Pt(at.X+10, at.Y), gocv.FontHersheySimplex, 0.5, White, 2)
}

// Encode compresses frame to JPEG. Quality outside 1-100 uses DefaultQuality.
func Encode(frame gocv.Mat, quality int) ([]byte, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("encode frame: empty frame")
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory that Close releases.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
