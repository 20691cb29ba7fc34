package main

import (
	"context"
	"fmt"
	"groovon/auth"
	"groovon/domain/chat"
	"groovon/projection"
	"groovon/services"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const help = `Commands:
  /register <email> <password> [display name]
  /login <email> <password>
  /logout
  /groups              list the groups
  /group <id>          switch group
  /avatars             list the avatars
  /avatar <seed>       change avatar
  /name <display name> change display name
  /discard             drop the pending draft
  /quit
Type a message and press Enter to send it. End a line with \ to continue on the next one.`

// terminal prints the rendered feed incrementally and turns input lines into actions.
type terminal struct {
	mu       sync.Mutex
	out      io.Writer
	session  *services.SessionService
	provider *auth.LocalProvider
	loc      *time.Location
	printed  map[string]struct{}
	lastDay  string
}

func newTerminal(out io.Writer, session *services.SessionService, provider *auth.LocalProvider, loc *time.Location) *terminal {
	return &terminal{
		out:      out,
		session:  session,
		provider: provider,
		loc:      loc,
		printed:  make(map[string]struct{}),
	}
}

func (t *terminal) welcome() {
	fmt.Fprintln(t.out, color.New(color.FgMagenta, color.OpBold).Render("Welcome to groovon"))
	fmt.Fprintln(t.out, help)
}

// showDraft prints a pending draft so the next lines are known to continue it.
func (t *terminal) showDraft(text string) {
	if text == "" {
		return
	}
	fmt.Fprintln(t.out, color.Gray.Sprint("Pending draft (next lines continue it, /discard drops it):"))
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		fmt.Fprintln(t.out, color.Gray.Sprint("  > "+line))
	}
}

// continueDraft appends line to draft. A draft restored from a previous run
// does not end with a soft newline, so a space keeps the words apart.
func continueDraft(draft, line string) string {
	if draft == "" || strings.HasSuffix(draft, "\n") {
		return draft + line
	}
	return draft + " " + line
}

// render prints only the messages not shown yet.
func (t *terminal) render(items []projection.DisplayItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(items) == 0 {
		t.reset()
		return
	}
	day := ""
	for _, item := range items {
		if item.Kind == projection.DaySeparator {
			day = item.DayLabel
			continue
		}
		if _, ok := t.printed[item.MessageID]; ok {
			continue
		}
		if day != t.lastDay {
			fmt.Fprintln(t.out, color.Gray.Sprintf("--- %s ---", day))
			t.lastDay = day
		}
		t.printMessage(item)
		t.printed[item.MessageID] = struct{}{}
	}
}

func (t *terminal) printMessage(item projection.DisplayItem) {
	var header string
	if item.IsOwn {
		header = color.Cyan.Sprint("me")
	} else {
		header = color.New(color.FgGreen, color.OpBold).Sprint(item.SenderName)
	}
	if item.TimeLabel != "" {
		header += " " + color.Gray.Sprint(item.TimeLabel)
	}
	fmt.Fprintln(t.out, header)
	for _, line := range strings.Split(item.Text, "\n") {
		fmt.Fprintln(t.out, "  "+line)
	}
}

func (t *terminal) groupChanged(group chat.GroupID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
	label := string(group)
	if g, ok := chat.LookupGroup(group); ok {
		label = g.Label
	}
	fmt.Fprintln(t.out, color.Yellow.Sprintf("=== #%s ===", label))
}

func (t *terminal) reset() {
	t.printed = make(map[string]struct{})
	t.lastDay = ""
}

// handle runs one input line. It returns true when the user asked to quit.
func (t *terminal) handle(ctx context.Context, line string) bool {
	if strings.HasPrefix(line, "/") {
		return t.command(ctx, strings.Fields(line))
	}
	composer := t.session.Composer()
	if strings.HasSuffix(line, `\`) {
		t.report(composer.SetText(continueDraft(composer.Text(), strings.TrimSuffix(line, `\`))))
		t.report(composer.SoftNewline())
		return false
	}
	if err := composer.SetText(continueDraft(composer.Text(), line)); err != nil {
		t.report(err)
		return false
	}
	_, _, err := composer.Submit(ctx)
	t.report(err)
	return false
}

func (t *terminal) command(ctx context.Context, args []string) bool {
	switch args[0] {
	case "/quit":
		return true
	case "/help":
		fmt.Fprintln(t.out, help)
	case "/register":
		if len(args) < 3 {
			t.usage("/register <email> <password> [display name]")
			return false
		}
		_, err := t.provider.Register(ctx, args[1], args[2], strings.Join(args[3:], " "))
		t.report(err)
		if err == nil {
			t.showDraft(t.session.Composer().Text())
		}
	case "/login":
		if len(args) != 3 {
			t.usage("/login <email> <password>")
			return false
		}
		_, err := t.provider.SignIn(ctx, args[1], args[2])
		t.report(err)
		if err == nil {
			t.showDraft(t.session.Composer().Text())
		}
	case "/discard":
		t.report(t.session.Composer().SetText(""))
	case "/logout":
		t.report(t.provider.SignOut(ctx))
	case "/groups":
		t.groups()
	case "/group":
		if len(args) != 2 {
			t.usage("/group <id>")
			return false
		}
		t.report(t.session.Groups().Set(chat.GroupID(args[1])))
	case "/avatars":
		t.avatars()
	case "/avatar":
		if len(args) != 2 {
			t.usage("/avatar <seed>")
			return false
		}
		t.report(t.session.ChangeAvatar(ctx, args[1]))
	case "/name":
		t.report(t.session.ChangeName(ctx, strings.Join(args[1:], " ")))
	default:
		t.usage("/help")
	}
	return false
}

func (t *terminal) groups() {
	current := t.session.Groups().Get()
	table := newTable(t.out, "", "Group", "Label", "Description")
	for _, g := range chat.Groups() {
		marker := ""
		if g.ID == current {
			marker = "*"
		}
		table.Append([]string{marker, string(g.ID), g.Label, g.Description})
	}
	table.Render()
}

func (t *terminal) avatars() {
	table := newTable(t.out, "Seed", "Avatar")
	for _, seed := range chat.AvatarSeeds {
		table.Append([]string{seed, chat.AvatarURL(seed)})
	}
	table.Render()
}

func (t *terminal) usage(text string) {
	fmt.Fprintln(t.out, color.Gray.Sprint("usage: "+text))
}

func (t *terminal) report(err error) {
	if err != nil {
		fmt.Fprintln(t.out, color.Red.Sprint(err.Error()))
	}
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
