package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/lysyi3m/rss-relay/app/relay"
	"github.com/lysyi3m/rss-relay/app/tasks"
)

const commandName = "rss"

// Relay is the part of the relay the commands operate on.
type Relay interface {
	tasks.Relay
	Add(ctx context.Context, channel, name, url, rawFormat string) (relay.FeedInfo, error)
	Delete(name string) (relay.FeedInfo, error)
	SetFormat(ctx context.Context, name, raw string) (relay.FeedInfo, error)
	Fields(ctx context.Context, name string) (string, error)
	Feed(name string) (relay.FeedInfo, error)
	List(filter string) []relay.FeedInfo
	Channels() []string
	EncodeFeeds() string
	EncodeFormats() string
	EncodeTemplates() string
	SetFeeds(ctx context.Context, value string) ([]relay.FeedInfo, []error)
	SetFormats(raws []string) []string
	SetTemplates(pairs []string) []string
}

// Scheduler queues polls on behalf of get and update.
type Scheduler interface {
	EnqueueTask(task tasks.TaskInterface) error
	Sweep() error
}

type handler func(ctx context.Context, args []string) []string

// Dispatcher maps text commands to relay operations and returns the reply
// lines for the operator.
type Dispatcher struct {
	relay     Relay
	scheduler Scheduler
	prefix    string
	handlers  map[string]handler
}

func NewDispatcher(r Relay, scheduler Scheduler, prefix string) *Dispatcher {
	d := &Dispatcher{
		relay:     r,
		scheduler: scheduler,
		prefix:    prefix,
	}

	d.handlers = map[string]handler{
		"add":    d.add,
		"config": d.config,
		"del":    d.del,
		"fields": d.fields,
		"format": d.format,
		"get":    d.get,
		"help":   d.help,
		"join":   d.join,
		"list":   d.list,
		"update": d.update,
	}

	return d
}

// Run tokenizes line with shell quoting rules and executes it.
func (d *Dispatcher) Run(ctx context.Context, line string) []string {
	args, err := shellquote.Split(line)
	if err != nil {
		return []string{fmt.Sprintf("unable to parse command: %v", err)}
	}
	return d.Execute(ctx, args)
}

// Execute runs the command args[0] with the remaining arguments.
func (d *Dispatcher) Execute(ctx context.Context, args []string) []string {
	if len(args) == 0 {
		return []string{d.generalSynopsis()}
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return []string{d.generalSynopsis()}
	}

	present := len(args) - 1
	if present < cmd.required || present > cmd.required+cmd.optional {
		return []string{d.synopsis(cmd.usage)}
	}

	slog.Debug("Running command", "command", args[0], "args", args[1:])
	return d.handlers[args[0]](ctx, args)
}

func (d *Dispatcher) add(ctx context.Context, args []string) []string {
	channel, feedName, url := args[1], args[2], args[3]
	rawFormat := ""
	if len(args) == 5 {
		rawFormat = args[4]
	}

	info, err := d.relay.Add(ctx, channel, feedName, url, rawFormat)
	if err != nil {
		return d.failure(feedName, err)
	}

	replies := []string{added(info, rawFormat != "")}
	return append(replies, d.save()...)
}

func (d *Dispatcher) config(ctx context.Context, args []string) []string {
	key := args[1]
	if _, ok := configKeys[key]; !ok {
		return []string{d.configKeysHint()}
	}

	if len(args) == 2 || args[2] == "" {
		return []string{d.configValue(key)}
	}
	value := args[2]

	var replies []string
	switch key {
	case "feeds":
		infos, errs := d.relay.SetFeeds(ctx, value)
		for _, info := range infos {
			replies = append(replies, added(info, false))
		}
		for _, err := range errs {
			replies = append(replies, problems(err)...)
		}
	case "formats":
		d.relay.SetFormats(splitList(value))
	case "templates":
		for _, pair := range d.relay.SetTemplates(splitList(value)) {
			replies = append(replies, fmt.Sprintf("unable to apply template %q", pair))
		}
	}

	replies = append(replies, d.configValue(key))
	return append(replies, d.save()...)
}

func (d *Dispatcher) configValue(key string) string {
	var value string
	switch key {
	case "feeds":
		value = d.relay.EncodeFeeds()
	case "formats":
		value = d.relay.EncodeFormats()
	case "templates":
		value = d.relay.EncodeTemplates()
	}
	return fmt.Sprintf("%s = %s", key, value)
}

func (d *Dispatcher) del(ctx context.Context, args []string) []string {
	info, err := d.relay.Delete(args[1])
	if err != nil {
		return d.failure(args[1], err)
	}

	replies := []string{fmt.Sprintf("deleted rss feed %q in channel %q with url %q", info.Name, info.Channel, info.URL)}
	return append(replies, d.save()...)
}

func (d *Dispatcher) fields(ctx context.Context, args []string) []string {
	fields, err := d.relay.Fields(ctx, args[1])
	if err != nil {
		return d.failure(args[1], err)
	}
	return []string{fmt.Sprintf("fields of feed %q are %q", args[1], fields)}
}

func (d *Dispatcher) format(ctx context.Context, args []string) []string {
	info, err := d.relay.SetFormat(ctx, args[1], args[2])
	if errors.Is(err, relay.ErrInvalidFormat) {
		return []string{fmt.Sprintf("consider %s%s fields %s to create a valid format", d.prefix, commandName, args[1])}
	}
	if err != nil {
		return d.failure(args[1], err)
	}

	replies := []string{fmt.Sprintf("format of feed %q has been set to %q", info.Name, info.Format)}
	return append(replies, d.save()...)
}

func (d *Dispatcher) get(ctx context.Context, args []string) []string {
	if _, err := d.relay.Feed(args[1]); err != nil {
		return d.failure(args[1], err)
	}

	if err := d.scheduler.EnqueueTask(tasks.NewPollFeedTask(args[1], d.relay, relay.Chatty)); err != nil {
		return []string{fmt.Sprintf("unable to get feed %q: %v", args[1], err)}
	}
	return nil
}

func (d *Dispatcher) help(ctx context.Context, args []string) []string {
	if len(args) == 1 {
		return []string{d.synopsis(commands["help"].usage), d.commandList()}
	}

	topic := args[1]
	cmd, ok := commands[topic]
	if !ok {
		return []string{d.synopsis(commands["help"].usage), d.commandList()}
	}

	if topic == "config" {
		if len(args) == 3 {
			if key, ok := configKeys[args[2]]; ok {
				return helpText(key.synopsis, key.help, key.examples, "")
			}
		}
		return append(helpText(d.synopsis(cmd.usage), cmd.help, cmd.examples, d.prefix+commandName+" "), d.configKeysHint())
	}

	return helpText(d.synopsis(cmd.usage), cmd.help, cmd.examples, d.prefix+commandName+" ")
}

func (d *Dispatcher) join(ctx context.Context, args []string) []string {
	return d.relay.Channels()
}

func (d *Dispatcher) list(ctx context.Context, args []string) []string {
	filter := ""
	if len(args) == 2 {
		filter = args[1]
	}

	var replies []string
	for _, info := range d.relay.List(filter) {
		replies = append(replies, fmt.Sprintf("%s %s %s %s", info.Channel, info.Name, info.URL, info.Format))
	}
	return replies
}

func (d *Dispatcher) update(ctx context.Context, args []string) []string {
	if err := d.scheduler.Sweep(); err != nil {
		return []string{fmt.Sprintf("unable to update feeds: %v", err)}
	}
	return nil
}

func (d *Dispatcher) save() []string {
	if err := d.relay.SaveState(); err != nil {
		return []string{"unable to save config to disk!"}
	}
	return nil
}

func (d *Dispatcher) failure(feedName string, err error) []string {
	if errors.Is(err, relay.ErrFeedNotFound) {
		return []string{fmt.Sprintf("feed %q doesn't exist!", feedName)}
	}
	return problems(err)
}

func (d *Dispatcher) synopsis(usage string) string {
	return fmt.Sprintf("synopsis: %s%s %s", d.prefix, commandName, usage)
}

func (d *Dispatcher) generalSynopsis() string {
	return d.synopsis(strings.Join(commandNames(), "|"))
}

func (d *Dispatcher) commandList() string {
	return fmt.Sprintf("where <command> is one of %s", strings.Join(commandNames(), "|"))
}

func (d *Dispatcher) configKeysHint() string {
	keys := make([]string, 0, len(configKeys))
	for key := range configKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return fmt.Sprintf("get help on config keys with: %s%s help config %s", d.prefix, commandName, strings.Join(keys, "|"))
}

func added(info relay.FeedInfo, withFormat bool) string {
	if withFormat {
		return fmt.Sprintf("added rss feed %q to channel %q with url %q and format %q", info.Name, info.Channel, info.URL, info.Format)
	}
	return fmt.Sprintf("added rss feed %q to channel %q with url %q", info.Name, info.Channel, info.URL)
}

// problems lists every failed acceptance check of err, or err itself.
func problems(err error) []string {
	var validationErr *relay.ValidationError
	if errors.As(err, &validationErr) {
		replies := make([]string, 0, len(validationErr.Problems))
		for _, problem := range validationErr.Problems {
			replies = append(replies, problem.Error())
		}
		return replies
	}
	if errors.Is(err, relay.ErrUnreadableFeed) {
		return []string{"unable to read feed"}
	}
	return []string{err.Error()}
}

func helpText(synopsis string, help, examples []string, examplePrefix string) []string {
	lines := append([]string{synopsis}, help...)
	lines = append(lines, "examples:")
	for _, example := range examples {
		lines = append(lines, examplePrefix+example)
	}
	return lines
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for cmd := range commands {
		names = append(names, cmd)
	}
	sort.Strings(names)
	return names
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
