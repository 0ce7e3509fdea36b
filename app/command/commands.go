package command

import "github.com/lysyi3m/rss-relay/app/format"

type command struct {
	usage    string
	help     []string
	examples []string
	required int
	optional int
}

var commands = map[string]command{
	"add": {
		usage:    "add <channel> <name> <url> [<format>]",
		help:     []string{"add a feed identified by <name> with feed address <url> to channel <channel>. optional: add a format string."},
		examples: []string{"add #news guardian https://www.theguardian.com/world/rss", "add #news guardian https://www.theguardian.com/world/rss " + format.DefaultFormat},
		required: 3,
		optional: 1,
	},
	"config": {
		usage:    "config <key> [<value>]",
		help:     []string{"show the value of a key in the config file or set the value of a key in the config file."},
		examples: []string{"config formats", "config templates"},
		required: 1,
		optional: 1,
	},
	"del": {
		usage:    "del <name>",
		help:     []string{"delete a feed identified by <name>."},
		examples: []string{"del guardian"},
		required: 1,
	},
	"fields": {
		usage: "fields <name>",
		help: []string{
			"list all feed item fields available for the feed identified by <name>.",
			"f: feedname, a: author, d: description, g: guid, l: link, p: published, s: summary, t: title, y: short link",
		},
		examples: []string{"fields guardian"},
		required: 1,
	},
	"format": {
		usage: "format <name> <format>",
		help: []string{
			"set the format string for the feed identified by <name>.",
			"a format string is separated by the separator \"" + format.Separator + "\"",
			"the left part of the format string indicates the fields that will be hashed for an item. if you change this part all feed items will be reposted.",
			"the fields determine when a feed item will be reposted. if you see duplicates then first look at this part of the format string.",
			"the right part of the format string determines which feed item fields will be posted.",
		},
		examples: []string{"format guardian " + format.DefaultFormat},
		required: 2,
	},
	"get": {
		usage:    "get <name>",
		help:     []string{"post all feed items of the feed identified by <name> to its channel."},
		examples: []string{"get guardian"},
		required: 1,
	},
	"help": {
		usage:    "help [<command>]",
		help:     []string{"get help for <command>."},
		examples: []string{"help format"},
		optional: 2,
	},
	"join": {
		usage:    "join",
		help:     []string{"list all channels which are associated to a feed."},
		examples: []string{"join"},
	},
	"list": {
		usage:    "list [<feed>|<channel>]",
		help:     []string{"list the properties of a feed identified by <feed> or list all feeds in a channel identified by <channel>."},
		examples: []string{"list", "list guardian", "list #news"},
		optional: 1,
	},
	"update": {
		usage:    "update",
		help:     []string{"post the latest feed items of all feeds."},
		examples: []string{"update"},
	},
}

type configKey struct {
	synopsis string
	help     []string
	examples []string
}

var configKeys = map[string]configKey{
	"feeds": {
		synopsis: "feeds = <channel1>|<feed1>|<url1>[|<format1>],<channel2>|<feed2>|<url2>[|<format2>],...",
		help:     []string{"the relay is watching these feeds. it reads the feed located at the url and posts new feed items to the channel in the specified format."},
		examples: []string{"feeds = #news|guardian|https://www.theguardian.com/world/rss|" + format.DefaultFormat},
	},
	"formats": {
		synopsis: "formats = <format1>,<format2>,...",
		help: []string{
			"if no format is defined for a feed the relay will try these formats and the global default format (" + format.DefaultFormat + ") one by one until it finds a valid format.",
			"a format is valid if the fields used in the format do exist in the feed items.",
		},
		examples: []string{"formats = pl+fpatl,plfp+l"},
	},
	"templates": {
		synopsis: "templates = <field1>|<template1>,<field2>|<template2>,...",
		help: []string{
			"for each feed item field a template can be defined which will be used to create the output string.",
			"each template must contain exactly one pair of curly braces which will be replaced by the field value.",
			"the relay will use the builtin template for those fields which no custom template is defined.",
		},
		examples: []string{"templates = t|<b>{}</b>,p|[{}]"},
	},
}
