package console

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	ButtonA    key.Binding
	ButtonB    key.Binding
	Left       key.Binding
	Right      key.Binding
	Joy        key.Binding
	Finger     key.Binding
	HoldGreen  key.Binding
	HoldYellow key.Binding
	HoldRed    key.Binding
	RemoveBand key.Binding
	Quit       key.Binding
}

var Keys = KeyMap{
	ButtonA: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "botao A"),
	),
	ButtonB: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "botao B"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "joystick"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "joystick"),
	),
	Joy: key.NewBinding(
		key.WithKeys("j", "enter"),
		key.WithHelp("j/enter", "botao do joystick"),
	),
	Finger: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "dedo no oximetro"),
	),
	HoldGreen: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "pulseira verde"),
	),
	HoldYellow: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "pulseira amarela"),
	),
	HoldRed: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "pulseira vermelha"),
	),
	RemoveBand: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "sem pulseira"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "sair"),
	),
}

// ShortHelp - подсказка в строке состояния
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ButtonA, k.ButtonB, k.Left, k.Right, k.Joy, k.Finger, k.HoldGreen, k.HoldYellow, k.HoldRed, k.RemoveBand, k.Quit}
}
