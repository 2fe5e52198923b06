package singbox

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proJSON = `{
  "log": {"level": "info"},
  "outbounds": [
    {"type": "selector", "tag": "Proxy", "outbounds": ["HKonly", "SGonly", "USonly", "AllServer", "AIDefault", "YouTube", "Netflix", "Apple", "SGNowaHomePlus"]},
    {"type": "urltest", "tag": "HKonly", "outbounds": ["🇭🇰 HK Old 01", "SGoffice"]},
    {"type": "urltest", "tag": "SGonly", "outbounds": ["🇸🇬 SG Old 01", "SGNowaHomePlus", "SGoffice"]},
    {"type": "urltest", "tag": "USonly", "outbounds": ["🇺🇸 US Old 01"]},
    {"type": "urltest", "tag": "AllServer", "outbounds": ["🇭🇰 HK Old 01", "🇸🇬 SG Old 01", "🇺🇸 US Old 01"]},
    {"type": "selector", "tag": "AIDefault", "outbounds": ["USonly"]},
    {"type": "selector", "tag": "YouTube", "outbounds": ["HKonly"]},
    {"type": "selector", "tag": "Netflix", "outbounds": ["SGonly"]},
    {"type": "selector", "tag": "Apple", "outbounds": ["direct"]},
    {"type": "shadowsocks", "tag": "🇭🇰 HK Old 01", "server": "old-hk.example", "server_port": 443},
    {"type": "shadowsocks", "tag": "🇸🇬 SG Old 01", "server": "old-sg.example", "server_port": 443},
    {"type": "shadowsocks", "tag": "🇺🇸 US Old 01", "server": "old-us.example", "server_port": 443},
    {"type": "vless", "tag": "SGNowaHomePlus", "server": "home.example", "server_port": 8443},
    {"type": "vless", "tag": "SGoffice", "server": "office.example", "server_port": 8443},
    {"type": "direct", "tag": "direct"},
    {"type": "block", "tag": "block"},
    {"type": "dns", "tag": "dns-out"}
  ],
  "route": {
    "rules": [
      {"protocol": "dns", "outbound": "dns-out"},
      {"rule_set": ["geosite-openai"], "outbound": "AIDefault"},
      {"rule_set": ["geosite-youtube"], "outbound": "YouTube"},
      {"rule_set": ["geosite-cn"], "outbound": "direct"},
      {"domain_suffix": [".example.org"], "outbound": "Proxy"}
    ],
    "final": "Netflix"
  }
}`

const subJSON = `{
  "outbounds": [
    {"type": "trojan", "tag": "🇭🇰 香港 01", "server": "hk1.example", "server_port": 443},
    {"type": "trojan", "tag": "🇭🇰 香港 02", "server": "hk2.example", "server_port": 443},
    {"type": "trojan", "tag": "🇨🇳 台湾 01", "server": "tw1.example", "server_port": 443},
    {"type": "trojan", "tag": "🇸🇬 新加坡 01", "server": "sg1.example", "server_port": 443},
    {"type": "trojan", "tag": "🇯🇵 日本 01", "server": "jp1.example", "server_port": 443},
    {"type": "trojan", "tag": "🇺🇸 美国 01", "server": "us1.example", "server_port": 443},
    {"type": "trojan", "tag": "剩余流量 100G", "server": "info.example", "server_port": 1}
  ]
}`

func decode(t *testing.T, s string) Document {
	t.Helper()
	doc, err := Decode(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func tags(doc Document) []string {
	var out []string
	for _, o := range doc.Outbounds() {
		out = append(out, o.Tag())
	}
	return out
}

func members(t *testing.T, doc Document, tag string) []string {
	t.Helper()
	o, ok := doc.Find(tag)
	require.True(t, ok, "outbound %s", tag)
	return o.Members()
}

func TestClassify(t *testing.T) {
	c := DefaultRules().Classify(decode(t, subJSON))

	assert.Equal(t, 7, c.Total)
	assert.Equal(t, []string{"🇭🇰 香港 01", "🇭🇰 香港 02", "🇨🇳 台湾 01"}, c.Tags("HKonly"))
	assert.Equal(t, []string{"🇸🇬 新加坡 01"}, c.Tags("SGonly"))
	assert.Equal(t, []string{"🇺🇸 美国 01"}, c.Tags("USonly"))
	assert.Len(t, c.Tags("AllServer"), 6, "everything flagged lands in AllServer")
	assert.Equal(t, 2, c.Counts["🇭🇰"])
	assert.Equal(t, 1, c.Counts["🇯🇵"])
}

func TestCustomMembership(t *testing.T) {
	m := DefaultRules().CustomMembership(decode(t, proJSON))

	assert.Equal(t, map[string]bool{"Proxy": true, "SGonly": true}, m["SGNowaHomePlus"])
	assert.Equal(t, map[string]bool{"HKonly": true, "SGonly": true}, m["SGoffice"])
}

func TestUpdate(t *testing.T) {
	rules := DefaultRules()
	base := decode(t, proJSON)
	c := rules.Classify(decode(t, subJSON))

	doc, report := rules.Update(base, c)

	got := tags(doc)
	assert.NotContains(t, got, "🇭🇰 HK Old 01", "old subscription servers are dropped")
	assert.NotContains(t, got, "🇺🇸 US Old 01")
	assert.NotContains(t, got, "剩余流量 100G", "unflagged subscription entries are ignored")
	assert.Contains(t, got, "SGNowaHomePlus")
	assert.Contains(t, got, "SGoffice")
	assert.Contains(t, got, "direct")

	// New servers are appended in regional group order without duplicates.
	assert.Equal(t, []string{
		"🇭🇰 香港 01", "🇭🇰 香港 02", "🇨🇳 台湾 01", "🇸🇬 新加坡 01", "🇺🇸 美国 01", "🇯🇵 日本 01",
	}, got[len(got)-6:])

	assert.Equal(t, []string{"🇭🇰 香港 01", "🇭🇰 香港 02", "🇨🇳 台湾 01", "SGoffice"}, members(t, doc, "HKonly"))
	assert.Equal(t, []string{"🇸🇬 新加坡 01", "SGNowaHomePlus", "SGoffice"}, members(t, doc, "SGonly"))
	assert.Equal(t, []string{"🇺🇸 美国 01"}, members(t, doc, "USonly"))
	assert.Len(t, members(t, doc, "AllServer"), 6)
	assert.Equal(t, members(t, base, "Proxy"), members(t, doc, "Proxy"), "non-regional groups untouched")

	assert.Equal(t, 3, report.Removed)
	assert.Equal(t, 6, report.Added)
	assert.Equal(t, len(got), report.Outbounds)
	require.Len(t, report.Groups, 4)
	assert.Equal(t, GroupUpdate{Group: "SGonly", Subscription: 1, Custom: 2}, report.Groups[1])

	// The base document is left alone.
	assert.Contains(t, tags(base), "🇭🇰 HK Old 01")
	assert.Equal(t, []string{"🇭🇰 HK Old 01", "SGoffice"}, members(t, base, "HKonly"))
}

func TestUpdate_Idempotent(t *testing.T) {
	rules := DefaultRules()
	c := rules.Classify(decode(t, subJSON))

	once, _ := rules.Update(decode(t, proJSON), c)
	twice, report := rules.Update(once, c)

	assert.Equal(t, tags(once), tags(twice))
	assert.Equal(t, 6, report.Removed)
	assert.Equal(t, members(t, once, "SGonly"), members(t, twice, "SGonly"))
}

func TestAirPersonal(t *testing.T) {
	rules := DefaultRules()
	pro := decode(t, proJSON)

	air := rules.AirPersonal(pro)

	got := tags(air)
	for _, g := range []string{"AIDefault", "YouTube", "Netflix", "Apple", "USonly"} {
		assert.NotContains(t, got, g)
	}
	assert.Contains(t, got, "AllServer")
	assert.Contains(t, got, "SGNowaHomePlus")
	assert.Equal(t, []string{"HKonly", "SGonly", "SGNowaHomePlus"}, members(t, air, "Proxy"))

	route := air["route"].(map[string]any)
	rulesOut := route["rules"].([]any)
	assert.Len(t, rulesOut, 3)
	var outs []string
	for _, r := range rulesOut {
		outs = append(outs, r.(map[string]any)["outbound"].(string))
	}
	assert.Equal(t, []string{"dns-out", "direct", "Proxy"}, outs)
	assert.Equal(t, "Proxy", route["final"])

	// Pro keeps everything.
	assert.Contains(t, tags(pro), "YouTube")
	assert.Equal(t, "Netflix", pro["route"].(map[string]any)["final"])
}

func TestAirPersonal_NoDanglingMembers(t *testing.T) {
	doc := decode(t, `{"outbounds": [
		{"type": "selector", "tag": "Proxy", "outbounds": ["HKonly", "AllServer", "YouTube"]},
		{"type": "selector", "tag": "Backup", "outbounds": ["USonly", "HKonly", "AllServer", "Netflix"]},
		{"type": "urltest", "tag": "HKonly", "outbounds": ["🇭🇰 HK Old 01"]},
		{"type": "urltest", "tag": "USonly", "outbounds": ["🇺🇸 US Old 01"]},
		{"type": "urltest", "tag": "AllServer", "outbounds": ["🇭🇰 HK Old 01", "🇺🇸 US Old 01"]},
		{"type": "selector", "tag": "YouTube", "outbounds": ["HKonly"]},
		{"type": "selector", "tag": "Netflix", "outbounds": ["USonly"]},
		{"type": "shadowsocks", "tag": "🇭🇰 HK Old 01", "server": "hk.example", "server_port": 443},
		{"type": "shadowsocks", "tag": "🇺🇸 US Old 01", "server": "us.example", "server_port": 443}
	]}`)

	air := DefaultRules().AirPersonal(doc)

	assert.Equal(t, []string{"HKonly"}, members(t, air, "Proxy"))
	assert.Equal(t, []string{"HKonly", "AllServer"}, members(t, air, "Backup"), "AllServer stays outside Proxy")

	defined := map[string]bool{}
	for _, o := range air.Outbounds() {
		defined[o.Tag()] = true
	}
	for _, o := range air.Outbounds() {
		for _, m := range o.Members() {
			assert.True(t, defined[m], "%s lists undefined %s", o.Tag(), m)
		}
	}
}

func TestAirFriend(t *testing.T) {
	rules := DefaultRules()
	air := rules.AirFriend(decode(t, proJSON))

	got := tags(air)
	assert.NotContains(t, got, "SGNowaHomePlus")
	assert.NotContains(t, got, "SGoffice")
	assert.Contains(t, got, "YouTube")

	for _, o := range air.Outbounds() {
		if o.IsGroup() {
			assert.NotContains(t, o.Members(), "SGNowaHomePlus", o.Tag())
			assert.NotContains(t, o.Members(), "SGoffice", o.Tag())
		}
	}
	assert.Equal(t, []string{"🇸🇬 SG Old 01"}, members(t, air, "SGonly"))
}

func TestVersionFromName(t *testing.T) {
	assert.Equal(t, "5_9", VersionFromName("Singbox_Pro_V5_9_Updated_20250101_120000"))
	assert.Equal(t, "6_1", VersionFromName("Singbox_Pro_V6_1.json"))
	assert.Equal(t, "5_9", VersionFromName("pro.json"))
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pro.json")

	require.NoError(t, Save(path, decode(t, proJSON)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n    \"log\"", "four space indent")
	assert.Contains(t, string(raw), "🇭🇰 HK Old 01", "non-ASCII kept verbatim")
	assert.Contains(t, string(raw), `"server_port": 443`, "numbers kept as written")

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tags(decode(t, proJSON)), tags(doc))

	noOut := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(noOut, []byte(`{"log":{}}`), 0o644))
	_, err = Load(noOut)
	assert.ErrorIs(t, err, ErrNoOutbounds)

	_, err = Decode(bytes.NewReader([]byte(`[1,2]`)))
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	doc := decode(t, proJSON)
	cp := doc.Clone()

	o, _ := cp.Find("HKonly")
	o.SetMembers([]string{"x"})

	assert.Equal(t, []string{"🇭🇰 HK Old 01", "SGoffice"}, members(t, doc, "HKonly"))
}
