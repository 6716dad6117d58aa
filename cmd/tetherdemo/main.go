package main

import (
	_ "embed"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/jmheld/tether/physics"
	"github.com/jmheld/tether/physics/planar"
	"github.com/jmheld/tether/scene"
	"github.com/jmheld/tether/scenedef"
)

const (
	screenWidth  = 1280
	screenHeight = 720
	pixelsPerM   = 40.0
	stepDT       = 1.0 / 60.0
)

//go:embed scene.yaml
var defaultScene []byte

type Game struct {
	scenePath string
	watcher   *scenedef.Watcher

	loop    *scene.Loop
	ctx     *physics.WorldContext
	groups  *physics.GroupRegistry
	engine  *planar.Engine
	built   *scenedef.Scene
	frames  int
	contact string
}

func NewGame(scenePath string) (*Game, error) {
	g := &Game{scenePath: scenePath}

	doc, err := g.loadDocument()
	if err != nil {
		return nil, err
	}
	if err := g.build(doc); err != nil {
		return nil, err
	}

	if scenePath != "" {
		w, err := scenedef.NewWatcher(filepath.Dir(scenePath))
		if err != nil {
			log.Printf("demo: scene watcher disabled: %v", err)
		} else {
			g.watcher = w
		}
	}
	return g, nil
}

func (g *Game) loadDocument() (*scenedef.Document, error) {
	if g.scenePath == "" {
		return scenedef.Load(defaultScene)
	}
	return scenedef.LoadFile(g.scenePath)
}

// build tears the previous scene down and instantiates doc against a fresh
// loop and physics world.
func (g *Game) build(doc *scenedef.Document) error {
	g.built.Close()

	g.loop = scene.NewLoop()
	g.ctx = physics.NewWorldContext()
	g.groups = physics.NewGroupRegistry()
	g.engine = planar.New(planar.Config{Gravity: gravityOf(doc), Iterations: 20}, g.ctx)

	built, err := scenedef.Build(doc, scenedef.Deps{
		Loop:    g.loop,
		World:   g.engine,
		Context: g.ctx,
		Groups:  g.groups,
		Bodies:  g.engine,
	})
	if err != nil {
		return err
	}
	g.built = built

	for _, col := range built.Colliders {
		name := col.Node().Parent().Name()
		for _, kind := range []physics.ContactEventKind{physics.ContactStarted, physics.SensorStarted} {
			kind := kind
			col.On(kind, func(ev physics.ContactEvent) {
				g.contact = fmt.Sprintf("%s: %s", name, kind)
			})
		}
	}
	return nil
}

func gravityOf(doc *scenedef.Document) (out mgl64.Vec3) {
	if len(doc.Gravity) > 0 {
		copy(out[:], doc.Gravity)
		return out
	}
	return mgl64.Vec3{0, -9.81, 0}
}

func (g *Game) Update() error {
	g.frames++
	g.pollWatcher()

	g.loop.Step(stepDT)
	g.engine.Step(stepDT)
	return nil
}

func (g *Game) pollWatcher() {
	if g.watcher == nil {
		return
	}
	select {
	case name, ok := <-g.watcher.Events:
		if !ok {
			g.watcher = nil
			return
		}
		log.Printf("demo: reloading scene after change to %s", name)
		doc, err := g.loadDocument()
		if err != nil {
			log.Printf("demo: reload: %v", err)
			return
		}
		if err := g.build(doc); err != nil {
			log.Printf("demo: rebuild: %v", err)
		}
	case err := <-g.watcher.Errors:
		if err != nil {
			log.Printf("demo: watcher: %v", err)
		}
	default:
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	for _, col := range g.engine.Colliders() {
		g.drawCollider(screen, col)
	}

	msg := fmt.Sprintf("FPS: %.1f  colliders: %d", ebiten.ActualFPS(), len(g.engine.Colliders()))
	if g.contact != "" {
		msg += "\nlast contact: " + g.contact
	}
	ebitenutil.DebugPrint(screen, msg)
}

func (g *Game) drawCollider(screen *ebiten.Image, col *planar.Collider) {
	pos, angle := col.WorldPose()
	cx, cy := worldToScreen(pos[0], pos[1])

	stroke := color.RGBA{R: 0x6f, G: 0xd3, B: 0x8f, A: 0xff}
	if col.Sensor() {
		stroke = color.RGBA{R: 0xd3, G: 0x98, B: 0x6f, A: 0xff}
	}

	switch s := col.Desc().Shape.(type) {
	case physics.Ball:
		vector.StrokeCircle(screen, cx, cy, float32(s.Radius*pixelsPerM), 1, stroke, true)
	case physics.Cuboid:
		drawPoly(screen, pos, angle, boxOutline(s.HalfExtents[0], s.HalfExtents[1]), stroke)
	case physics.Cylinder:
		drawPoly(screen, pos, angle, boxOutline(s.Radius, s.HalfHeight), stroke)
	case physics.Cone:
		drawPoly(screen, pos, angle, [][2]float64{{-s.Radius, -s.HalfHeight}, {s.Radius, -s.HalfHeight}, {0, s.HalfHeight}}, stroke)
	case physics.Capsule:
		a := rotated(0, -s.HalfHeight, angle)
		b := rotated(0, s.HalfHeight, angle)
		ax, ay := worldToScreen(pos[0]+a[0], pos[1]+a[1])
		bx, by := worldToScreen(pos[0]+b[0], pos[1]+b[1])
		vector.StrokeLine(screen, ax, ay, bx, by, float32(2*s.Radius*pixelsPerM), stroke, true)
	case physics.ConvexHull:
		outline := make([][2]float64, len(s.Points))
		for i, p := range s.Points {
			outline[i] = [2]float64{p[0], p[1]}
		}
		drawPoly(screen, pos, angle, outline, stroke)
	}
}

func drawPoly(screen *ebiten.Image, pos mgl64.Vec3, angle float64, verts [][2]float64, clr color.Color) {
	for i := range verts {
		a := rotated(verts[i][0], verts[i][1], angle)
		b := rotated(verts[(i+1)%len(verts)][0], verts[(i+1)%len(verts)][1], angle)
		ax, ay := worldToScreen(pos[0]+a[0], pos[1]+a[1])
		bx, by := worldToScreen(pos[0]+b[0], pos[1]+b[1])
		vector.StrokeLine(screen, ax, ay, bx, by, 1, clr, true)
	}
}

func boxOutline(hx, hy float64) [][2]float64 {
	return [][2]float64{{-hx, -hy}, {hx, -hy}, {hx, hy}, {-hx, hy}}
}

func rotated(x, y, angle float64) [2]float64 {
	sin, cos := math.Sincos(angle)
	return [2]float64{x*cos - y*sin, x*sin + y*cos}
}

func worldToScreen(x, y float64) (float32, float32) {
	return float32(screenWidth/2 + x*pixelsPerM), float32(screenHeight/2 - y*pixelsPerM)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	scenePath := flag.String("scene", "", "scene document to load (default: built-in demo scene)")
	flag.Parse()

	game, err := NewGame(*scenePath)
	if err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("tether demo")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
