package bridge

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/normanking/nekotts/internal/bus"
	"github.com/normanking/nekotts/internal/interaction"
	"github.com/normanking/nekotts/internal/menu"
	"github.com/normanking/nekotts/internal/session"
)

// PetBridge exposes the pet gesture surface to the frontend: clicks,
// hover, the context menu, and the state snapshots the renderer draws
// from.
type PetBridge struct {
	ctx        context.Context
	sess       *session.Session
	controller *interaction.Controller
	eventBus   *bus.EventBus
}

// NewPetBridge creates the pet bridge.
func NewPetBridge(sess *session.Session, controller *interaction.Controller, eventBus *bus.EventBus) *PetBridge {
	return &PetBridge{
		sess:       sess,
		controller: controller,
		eventBus:   eventBus,
	}
}

// Bind sets the Wails runtime context and wires state changes through to
// the frontend.
func (b *PetBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.sess.SetOnChange(func(snap session.Snapshot) {
		runtime.EventsEmit(b.ctx, "pet:stateChanged", snap)
		b.eventBus.Publish(bus.Event{
			Type: bus.EventTypePetStateChanged,
			Data: map[string]any{"mood": string(snap.Mood), "playback": string(snap.Playback)},
		})
	})

	b.controller.SetOnChange(func(state interaction.State) {
		runtime.EventsEmit(b.ctx, "pet:interactionChanged", state)
	})

	b.eventBus.Subscribe(bus.EventTypeInputRequested, func(bus.Event) {
		if b.ctx != nil {
			runtime.EventsEmit(b.ctx, "pet:openInput")
		}
	})
}

// PrimaryClick handles a left click on the pet.
func (b *PetBridge) PrimaryClick() {
	b.controller.PrimaryClick()
}

// SecondaryClick handles a right click on the pet and opens the context
// menu within the viewport.
func (b *PetBridge) SecondaryClick(x, y, viewportWidth, viewportHeight int) {
	b.controller.SecondaryClick(
		menu.Point{X: x, Y: y},
		menu.Size{Width: viewportWidth, Height: viewportHeight},
	)
}

// CloseMenu dismisses the context menu.
func (b *PetBridge) CloseMenu() {
	b.controller.CloseMenu()
}

// MenuAction dispatches a context menu selection.
func (b *PetBridge) MenuAction(action string) {
	b.controller.HandleMenuAction(interaction.MenuAction(action))
}

// SetHovering reports cursor hover over the pet.
func (b *PetBridge) SetHovering(hovering bool) {
	b.sess.SetHovering(hovering)
}

// ToggleInput shows or hides the quick input field.
func (b *PetBridge) ToggleInput() {
	b.sess.ToggleInput()
}

// GetPetState returns the current session snapshot.
func (b *PetBridge) GetPetState() session.Snapshot {
	return b.sess.Snapshot()
}

// GetInteractionState returns the current menu and bounce state.
func (b *PetBridge) GetInteractionState() interaction.State {
	return b.controller.State()
}
