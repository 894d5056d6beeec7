package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/emerald-altar/pkg/game"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
	historyLimit    = 50
	maxEffectsShown = 6
)

// ConsoleUI is the bubbletea model: a character picker, then the chat with a
// stats side panel.
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *apiClient
	character    *game.Character
	history      []game.ChatMessage
	effects      []effect
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool
	status       string

	// Character selection state
	showCharacterModal bool
	characters         []game.Character
	selected           int
	loadingCharacters  bool
	naming             bool

	showQuitModal bool
	progressTick  int
}

type charactersLoadedMsg struct {
	characters []game.Character
	err        error
}

type characterReadyMsg struct {
	character *game.Character
	history   []game.ChatMessage
	err       error
}

type chatResponseMsg struct {
	turn *turnResponse
	err  error
}

type inventoryMsg struct {
	entries []game.InventoryEntry
	err     error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // emerald
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	appliedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("36")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("42")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func NewConsoleUI(cfg *ConsoleConfig, client *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 4000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:             cfg,
		client:             client,
		textarea:           ta,
		chatViewport:       chatVp,
		metaViewport:       viewport.New(20, 20),
		showCharacterModal: true,
		loadingCharacters:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadCharacters()
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showCharacterModal {
		return m.updateCharacterModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeChatContent()
		m.writeMetadata()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			m.copyLastNarration()
			m.writeMetadata()
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.err = nil
			m.progressTick = 0
			if input != "" {
				m.history = append(m.history, game.ChatMessage{Content: input, IsUser: true})
			}
			m.writeChatContent()
			return m, tea.Batch(m.sendChatMessage(input), progressTick())
		}

	case chatResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.history = append(m.history, game.ChatMessage{Content: msg.turn.Message})
			if msg.turn.Character != nil {
				m.character = msg.turn.Character
			}
			for _, e := range msg.turn.Effects {
				if e.Applied && e.Summary != "" {
					m.effects = append(m.effects, e)
				}
			}
			if len(m.effects) > maxEffectsShown {
				m.effects = m.effects[len(m.effects)-maxEffectsShown:]
			}
		}
		m.writeChatContent()
		m.writeMetadata()
		return m, nil

	case inventoryMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.appendToChat(formatInventory(msg.entries))
		}
		m.writeChatContent()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// appendToChat shows local text in the chat without sending it anywhere.
func (m *ConsoleUI) appendToChat(text string) {
	m.history = append(m.history, game.ChatMessage{Content: text, ID: -1})
}

func (m *ConsoleUI) copyLastNarration() {
	for i := len(m.history) - 1; i >= 0; i-- {
		msg := m.history[i]
		if msg.IsUser || msg.ID < 0 {
			continue
		}
		if err := clipboard.WriteAll(msg.Content); err != nil {
			m.status = "Copy failed: " + err.Error()
			return
		}
		m.status = "Copied last narration"
		return
	}
	m.status = "Nothing to copy yet"
}

func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("EMERALD ALTAR") + "\n\n")
	if m.character != nil {
		content.WriteString(fmt.Sprintf("Playing %s. Press Enter on an empty line to let the narrator continue.\n\n", m.character.Name))
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	for _, msg := range m.history {
		switch {
		case msg.IsUser:
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(msg.Content, chatWidth-6) + "\n\n")
		case msg.ID < 0:
			content.WriteString(msg.Content + "\n\n")
		default:
			content.WriteString(formatNarratorResponse(msg.Content, chatWidth) + "\n\n")
		}
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	}
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() {
	c := m.character
	if c == nil {
		return
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(c.Name)) + "\n")
	content.WriteString(fmt.Sprintf("%s %s, level %d\n\n", c.Race, c.ClassName, c.Level()))

	content.WriteString(fmt.Sprintf("Money: %d\n", c.Money))
	content.WriteString(fmt.Sprintf("HP:    %d/%d\n", c.HP, c.MaxHP))
	content.WriteString(fmt.Sprintf("MP:    %d/%d\n", c.MP, c.MaxMP))
	if c.Incapacitated {
		content.WriteString(errorStyle.Render("Incapacitated") + "\n")
	}

	content.WriteString("\nRecent effects:\n")
	if len(m.effects) == 0 {
		content.WriteString(promptStyle.Render("None yet") + "\n")
	}
	for _, e := range m.effects {
		content.WriteString(appliedStyle.Render("• ") + wordwrap.String(e.Summary, max(m.metaViewport.Width-2, 10)) + "\n")
	}

	content.WriteString("\nCommands:\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• Ctrl+Y: Copy narration\n")
	content.WriteString("• /inventory\n")
	content.WriteString("• /help\n")
	content.WriteString("• Ctrl+C: Quit\n")

	if m.status != "" {
		content.WriteString("\n" + loadingStyle.Render(m.status) + "\n")
	}

	m.metaViewport.SetContent(content.String())
}

func formatNarratorResponse(response string, width int) string {
	wrapWidth := width - len(AgentName+": ")
	lines := strings.Split(wordwrap.String(response, wrapWidth), "\n")

	formatted := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			if len(strings.Fields(speaker)) <= 2 {
				formatted = append(formatted, speakerStyle.Render(speaker+":")+trimmed[idx+1:])
				continue
			}
		}
		formatted = append(formatted, line)
	}
	return narratorStyle.Render(AgentName+": ") + strings.Join(formatted, "\n")
}

func formatInventory(entries []game.InventoryEntry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Inventory:") + "\n")
	if len(entries) == 0 {
		b.WriteString("You carry nothing of note.\n")
	}
	for _, e := range entries {
		line := fmt.Sprintf("• %s (%s)", e.Item.Name, e.Item.Type)
		if e.Item.IsEquipped {
			line += " [equipped]"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	m.textarea.Reset()

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/inventory", "/inv":
		id := m.character.ID
		client := m.client
		return m, func() tea.Msg {
			entries, err := client.inventory(id)
			return inventoryMsg{entries, err}
		}
	default:
		m.appendToChat(titleStyle.Render("Help:") + `
• Type what your character does and press Enter
• An empty message asks the narrator to continue
• /inventory lists what you carry
• Ctrl+Y copies the last narration
• Ctrl+C quits
`)
	}
	m.writeChatContent()
	return m, nil
}

func (m ConsoleUI) sendChatMessage(message string) tea.Cmd {
	id := m.character.ID
	client := m.client
	return func() tea.Msg {
		turn, err := client.sendChat(id, message)
		return chatResponseMsg{turn, err}
	}
}

func (m ConsoleUI) loadCharacters() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		chars, err := client.listCharacters()
		return charactersLoadedMsg{chars, err}
	}
}

// openCharacter loads recent history; a character with no history gets an
// opening scene from the narrator.
func (m ConsoleUI) openCharacter(c *game.Character) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		history, err := client.history(c.ID, historyLimit)
		if err != nil {
			return characterReadyMsg{err: err}
		}
		if len(history) == 0 {
			turn, err := client.sendChat(c.ID, "")
			if err != nil {
				return characterReadyMsg{err: err}
			}
			history = append(history, game.ChatMessage{Content: turn.Message})
			if turn.Character != nil {
				c = turn.Character
			}
		}
		return characterReadyMsg{character: c, history: history}
	}
}

func (m ConsoleUI) createCharacter(name string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		c, err := client.createCharacter(name, "Human", "Adventurer")
		if err != nil {
			return characterReadyMsg{err: err}
		}
		return m.openCharacter(c)()
	}
}

func (m ConsoleUI) updateCharacterModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case charactersLoadedMsg:
		m.loadingCharacters = false
		m.err = msg.err
		m.characters = msg.characters
		m.naming = len(m.characters) == 0

	case characterReadyMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.character = msg.character
		m.history = msg.history
		m.showCharacterModal = false
		m.err = nil
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		m.textarea.Reset()
		m.textarea.Placeholder = PlaceHolderText
		m.textarea.Focus()
		m.ready = true
		m.writeChatContent()
		m.writeMetadata()
		return m, textarea.Blink

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingCharacters || m.loading {
			return m, nil
		}

		if m.naming {
			if msg.Type == tea.KeyEnter {
				name := strings.TrimSpace(m.textarea.Value())
				if name == "" {
					return m, nil
				}
				m.loading = true
				return m, m.createCharacter(name)
			}
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
		case tea.KeyDown:
			if m.selected < len(m.characters)-1 {
				m.selected++
			}
		case tea.KeyEnter:
			if len(m.characters) > 0 {
				m.loading = true
				c := m.characters[m.selected]
				return m, m.openCharacter(&c)
			}
		default:
			if msg.String() == "n" {
				m.naming = true
				m.textarea.Reset()
				m.textarea.Placeholder = "Name your character"
				m.textarea.Focus()
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if !m.showCharacterModal {
					m.textarea.Focus()
					return m, textarea.Blink
				}
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderCharacterModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loadingCharacters:
		content.WriteString(modalTitleStyle.Render("Loading Characters..."))
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Entering the world..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("The narrator is setting the scene..."))
	case m.naming:
		content.WriteString(modalTitleStyle.Render("New Character"))
		content.WriteString("\n\n")
		content.WriteString(m.textarea.View())
		content.WriteString("\n\n")
		content.WriteString(promptStyle.Render("Enter to create, Ctrl+C to exit"))
	default:
		content.WriteString(modalTitleStyle.Render("Choose a Character"))
		content.WriteString("\n\n")
		for i, c := range m.characters {
			label := fmt.Sprintf("%s (%s %s, level %d)", c.Name, c.Race, c.ClassName, c.Level())
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("↑/↓ to navigate, Enter to play, N for a new character"))
	}
	if m.err != nil {
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(m.err.Error()))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showCharacterModal {
		return m.renderCharacterModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar animates while the narrator is thinking.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
