package seeder

import (
	"fmt"
	"sort"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
)

// Baseline is the pattern for ordinary traffic.
const Baseline = "baseline"

type networkPattern func(f *gofakeit.Faker) *client.NetworkTraffic

type emailPattern func(f *gofakeit.Faker) *client.EmailCommunication

var networkPatterns = map[string]networkPattern{
	Baseline: func(f *gofakeit.Faker) *client.NetworkTraffic {
		sent := int64(f.Number(10, 400))
		received := int64(f.Number(10, 400))
		return &client.NetworkTraffic{
			SourceIP:           privateIP(f),
			DestinationIP:      f.IPv4Address(),
			Protocol:           f.RandomString([]string{"tcp", "udp", "https", "http"}),
			PacketSize:         int64(f.Number(64, 1500)),
			ConnectionDuration: f.Float64Range(0.05, 30),
			PortNumber:         f.RandomInt([]int{53, 80, 443, 443, 443, 8080}),
			PacketsSent:        sent,
			PacketsReceived:    received,
			BytesSent:          sent * int64(f.Number(200, 1200)),
			BytesReceived:      received * int64(f.Number(200, 1200)),
		}
	},
	// Flood of tiny packets against one service with almost nothing coming back.
	"ddos": func(f *gofakeit.Faker) *client.NetworkTraffic {
		sent := int64(f.Number(50000, 500000))
		return &client.NetworkTraffic{
			SourceIP:           f.IPv4Address(),
			DestinationIP:      privateIP(f),
			Protocol:           f.RandomString([]string{"udp", "tcp", "icmp"}),
			PacketSize:         int64(f.Number(40, 120)),
			ConnectionDuration: f.Float64Range(0.5, 5),
			PortNumber:         f.RandomInt([]int{80, 443, 53}),
			PacketsSent:        sent,
			PacketsReceived:    int64(f.Number(0, 50)),
			BytesSent:          sent * 64,
			BytesReceived:      int64(f.Number(0, 4000)),
		}
	},
	"port_scan": func(f *gofakeit.Faker) *client.NetworkTraffic {
		return &client.NetworkTraffic{
			SourceIP:           f.IPv4Address(),
			DestinationIP:      privateIP(f),
			Protocol:           "tcp",
			PacketSize:         int64(f.Number(40, 60)),
			ConnectionDuration: f.Float64Range(0, 0.01),
			PortNumber:         f.Number(1, 65535),
			PacketsSent:        1,
			PacketsReceived:    int64(f.Number(0, 1)),
			BytesSent:          int64(f.Number(40, 60)),
			BytesReceived:      int64(f.Number(0, 60)),
		}
	},
	// Long-lived outbound session that uploads far more than it downloads.
	"exfiltration": func(f *gofakeit.Faker) *client.NetworkTraffic {
		sent := int64(f.Number(20000, 200000))
		return &client.NetworkTraffic{
			SourceIP:           privateIP(f),
			DestinationIP:      f.IPv4Address(),
			Protocol:           f.RandomString([]string{"https", "tcp"}),
			PacketSize:         int64(f.Number(1200, 1500)),
			ConnectionDuration: f.Float64Range(600, 7200),
			PortNumber:         f.RandomInt([]int{443, 8443, 4444, 21}),
			PacketsSent:        sent,
			PacketsReceived:    int64(f.Number(100, 2000)),
			BytesSent:          sent * 1400,
			BytesReceived:      int64(f.Number(10000, 200000)),
		}
	},
	"brute_force": func(f *gofakeit.Faker) *client.NetworkTraffic {
		return &client.NetworkTraffic{
			SourceIP:           f.IPv4Address(),
			DestinationIP:      privateIP(f),
			Protocol:           "tcp",
			PacketSize:         int64(f.Number(80, 300)),
			ConnectionDuration: f.Float64Range(0.1, 2),
			PortNumber:         f.RandomInt([]int{22, 3389, 21, 23}),
			PacketsSent:        int64(f.Number(10, 40)),
			PacketsReceived:    int64(f.Number(10, 40)),
			BytesSent:          int64(f.Number(1000, 8000)),
			BytesReceived:      int64(f.Number(1000, 8000)),
		}
	},
}

var emailPatterns = map[string]emailPattern{
	Baseline: func(f *gofakeit.Faker) *client.EmailCommunication {
		attachments := f.RandomInt([]int{0, 0, 0, 1, 2})
		return &client.EmailCommunication{
			SenderEmail:    f.Email(),
			ReceiverEmail:  f.Email(),
			NumRecipients:  f.Number(1, 5),
			EmailSize:      int64(f.Number(2000, 80000) + attachments*f.Number(20000, 400000)),
			HasAttachment:  attachments > 0,
			NumAttachments: attachments,
			SubjectLength:  f.Number(10, 70),
			BodyLength:     f.Number(100, 4000),
			IsReply:        f.Bool(),
			IsForward:      f.Number(0, 9) == 0,
		}
	},
	// Short lure with a single attachment from a look-alike domain.
	"phishing": func(f *gofakeit.Faker) *client.EmailCommunication {
		return &client.EmailCommunication{
			SenderEmail:    fmt.Sprintf("%s@%s-secure-login.com", f.Username(), f.Word()),
			ReceiverEmail:  f.Email(),
			NumRecipients:  f.Number(1, 3),
			EmailSize:      int64(f.Number(30000, 150000)),
			HasAttachment:  true,
			NumAttachments: 1,
			SubjectLength:  f.Number(40, 120),
			BodyLength:     f.Number(50, 400),
		}
	},
	"spam": func(f *gofakeit.Faker) *client.EmailCommunication {
		return &client.EmailCommunication{
			SenderEmail:   fmt.Sprintf("%s@%s", f.Username(), f.DomainName()),
			ReceiverEmail: f.Email(),
			NumRecipients: f.Number(200, 5000),
			EmailSize:     int64(f.Number(5000, 30000)),
			SubjectLength: f.Number(60, 200),
			BodyLength:    f.Number(1000, 10000),
		}
	},
	"malware": func(f *gofakeit.Faker) *client.EmailCommunication {
		attachments := f.Number(2, 8)
		return &client.EmailCommunication{
			SenderEmail:    f.Email(),
			ReceiverEmail:  f.Email(),
			NumRecipients:  f.Number(1, 20),
			EmailSize:      int64(attachments * f.Number(500000, 5000000)),
			HasAttachment:  true,
			NumAttachments: attachments,
			SubjectLength:  f.Number(5, 30),
			BodyLength:     f.Number(0, 200),
			IsForward:      f.Bool(),
		}
	},
}

// Generator produces fake source records. It is not safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a generator; a zero seed picks a random one.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Network builds a network record following pattern.
func (g *Generator) Network(pattern string) (*client.NetworkTraffic, error) {
	p, ok := networkPatterns[pattern]
	if !ok {
		return nil, fmt.Errorf("unknown network pattern %q", pattern)
	}
	return p(g.faker), nil
}

// Email builds an email record following pattern.
func (g *Generator) Email(pattern string) (*client.EmailCommunication, error) {
	p, ok := emailPatterns[pattern]
	if !ok {
		return nil, fmt.Errorf("unknown email pattern %q", pattern)
	}
	return p(g.faker), nil
}

// AnomalyPattern picks one of kind's non-baseline patterns.
func (g *Generator) AnomalyPattern(kind string) string {
	names := anomalyPatterns(kind)
	if len(names) == 0 {
		return Baseline
	}
	return g.faker.RandomString(names)
}

// Chance reports true with probability p.
func (g *Generator) Chance(p float64) bool {
	return g.faker.Float64Range(0, 1) < p
}

// Patterns lists every pattern for kind, sorted, baseline included.
func Patterns(kind string) []string {
	var names []string
	switch kind {
	case client.KindNetwork:
		for name := range networkPatterns {
			names = append(names, name)
		}
	case client.KindEmail:
		for name := range emailPatterns {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func anomalyPatterns(kind string) []string {
	var out []string
	for _, name := range Patterns(kind) {
		if name != Baseline {
			out = append(out, name)
		}
	}
	return out
}

// KnownPattern reports whether kind has a pattern called name.
func KnownPattern(kind, name string) bool {
	switch kind {
	case client.KindNetwork:
		_, ok := networkPatterns[name]
		return ok
	case client.KindEmail:
		_, ok := emailPatterns[name]
		return ok
	}
	return false
}

func privateIP(f *gofakeit.Faker) string {
	return fmt.Sprintf("10.%d.%d.%d", f.Number(0, 255), f.Number(0, 255), f.Number(1, 254))
}
