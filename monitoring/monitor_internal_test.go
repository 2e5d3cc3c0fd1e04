package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesitopo/hooking"
	"github.com/sarchlab/mesitopo/topology"
)

type sampleStruct struct {
	Field1 int
	Field2 string
	Field3 *sampleStruct
	Field4 []sampleStruct
}

func eightCoreTopology(m *Monitor) *topology.Topology {
	c := topology.DefaultConfig()
	c.NumCPUs = 8
	c.NumL2Caches = 4
	c.LLCSelectLowBit = 12

	b := topology.MakeBuilder().WithConfig(c)
	if m != nil {
		b = b.WithHook(m)
	}

	t, err := b.Build()
	Expect(err).ToNot(HaveOccurred())

	return t
}

func get(m *Monitor, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	m.Handler().ServeHTTP(rec, req)

	return rec
}

func decode(rec *httptest.ResponseRecorder, v any) {
	Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = NewMonitor()
	})

	It("should reject requests before the topology is assembled", func() {
		rec := get(m, "/api/topology")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should count assembly events and keep the topology", func() {
		t := eightCoreTopology(m)

		Expect(m.topology).To(BeIdenticalTo(t))

		progress := map[string]int{}
		decode(get(m, "/api/progress"), &progress)
		Expect(progress[hooking.HookPosNodeBuilt.Name]).To(Equal(21))
		Expect(progress[hooking.HookPosChannelConnected.Name]).To(Equal(110))
		Expect(progress[hooking.HookPosTopologyAssembled.Name]).To(Equal(1))
	})

	Context("with a topology", func() {
		BeforeEach(func() {
			m.RegisterTopology(eightCoreTopology(nil))
		})

		It("should summarize the topology", func() {
			rsp := summaryRsp{}
			decode(get(m, "/api/topology"), &rsp)

			Expect(rsp.Name).To(Equal("System"))
			Expect(rsp.Kind).To(Equal("Crossbar"))
			Expect(rsp.VirtualNetworks).To(Equal(3))
			Expect(rsp.Channels).To(Equal(110))
			Expect(rsp.Nodes).To(HaveKeyWithValue("L2Cache", 4))
			Expect(rsp.Nodes).To(HaveKeyWithValue("Directory", 1))
			Expect(rsp.Nodes).ToNot(HaveKey("DMA"))
		})

		It("should list nodes", func() {
			names := []string{}
			decode(get(m, "/api/list_nodes"), &names)

			Expect(names).To(HaveLen(21))
			Expect(names).To(ContainElement("System.L2Cache[3]"))
		})

		It("should serialize a node", func() {
			rec := get(m, "/api/node/"+url.PathEscape("System.L2Cache[1]"))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("System.L2Cache[1]"))
		})

		It("should report unknown nodes", func() {
			rec := get(m, "/api/node/Nothing")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should return a field of a node", func() {
			req := `{"node_name":"System.L2Cache[1]",` +
				`"field_name":"Geometry.Assoc"}`
			rec := get(m, "/api/field/"+url.PathEscape(req))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("16"))
		})

		It("should reject unknown fields", func() {
			req := `{"node_name":"System.L2Cache[1]","field_name":"Nothing"}`
			rec := get(m, "/api/field/"+url.PathEscape(req))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should list the channels of a node", func() {
			channels := []channelRsp{}
			decode(get(m, "/api/channels?sort=vnet&node="+
				url.QueryEscape("System.L2Cache[0]")), &channels)

			Expect(channels).ToNot(BeEmpty())
			for i, c := range channels {
				Expect(c.From == "System.L2Cache[0]" ||
					c.To == "System.L2Cache[0]").To(BeTrue())

				if i > 0 {
					Expect(c.VirtualNetwork).To(
						BeNumerically(">=", channels[i-1].VirtualNetwork))
				}
			}
		})

		It("should page channels", func() {
			channels := []channelRsp{}
			decode(get(m, "/api/channels?limit=5&offset=2"), &channels)

			Expect(channels).To(HaveLen(5))
			Expect(channels[0].ID).To(Equal(2))
		})

		It("should reject unknown sort methods", func() {
			rec := get(m, "/api/channels?sort=size")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should list singleton groups", func() {
			groups := []groupRsp{}
			decode(get(m, "/api/groups"), &groups)

			Expect(groups).To(HaveLen(8))
			Expect(groups[3].Cores).To(Equal([]int{3}))
		})

		It("should find the owners of an address", func() {
			rsp := ownerRsp{}
			decode(get(m, "/api/owner/0x1000?cluster=0"), &rsp)

			Expect(rsp.Address).To(Equal("0x1000"))
			Expect(rsp.Bank).To(HavePrefix("System.L2Cache["))
			Expect(rsp.Directory).To(Equal("System.Directory[0]"))
		})

		It("should reject clusters that do not exist", func() {
			rec := get(m, "/api/owner/0x1000?cluster=3")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should report resource usage", func() {
			rsp := resourceRsp{}
			decode(get(m, "/api/resource"), &rsp)

			Expect(rsp.MemorySize).To(BeNumerically(">", 0))
		})

		It("should serve the web page", func() {
			rec := get(m, "/")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
		})
	})

	It("should clamp the page to the channels", func() {
		channels := []topology.Channel{{ID: 0}, {ID: 1}, {ID: 2}}

		Expect(m.sortAndSelectChannels(channels, "id", 5, 2)).To(HaveLen(1))
		Expect(m.sortAndSelectChannels(channels, "id", 0, 9)).To(BeEmpty())
		Expect(m.sortAndSelectChannels(channels, "id", 0, 0)).To(HaveLen(3))
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			Field1: 1,
		}

		elem, err := m.walkFields(s, "Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			Field2: "abc",
		}

		elem, err := m.walkFields(s, "Field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			Field3: &sampleStruct{
				Field1: 1,
			},
		}

		elem, err := m.walkFields(s, "Field3.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			Field4: []sampleStruct{{
				Field4: []sampleStruct{
					{Field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "Field4.0.Field4.0.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should stop at nil pointers", func() {
		s := &sampleStruct{}

		_, err := m.walkFields(s, "Field3.Field1")

		Expect(err).To(MatchError(fieldFormatError{"Field1"}))
	})

	It("should reject out of range indices", func() {
		s := &sampleStruct{Field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "Field4.1")

		Expect(err).To(HaveOccurred())
	})
})
