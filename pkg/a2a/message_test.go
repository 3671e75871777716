package a2a

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMessageWithMCPContext(t *testing.T) {
	Convey("Given a message with existing metadata", t, func() {
		msg := NewTextMessage("user", "hello")
		msg.Metadata = map[string]any{"trace_id": "abc"}

		Convey("Attaching MCP context preserves other metadata keys", func() {
			enriched := msg.WithMCPContext(map[string]any{"resource": "doc-1"})

			So(enriched.Metadata["trace_id"], ShouldEqual, "abc")
			So(enriched.Metadata[MCPContextKey], ShouldNotBeNil)

			ctx, ok := enriched.Metadata[MCPContextKey].(map[string]any)
			So(ok, ShouldBeTrue)
			So(ctx["resource"], ShouldEqual, "doc-1")
		})

		Convey("The original message is left untouched", func() {
			_ = msg.WithMCPContext(map[string]any{"resource": "doc-1"})

			_, present := msg.Metadata[MCPContextKey]
			So(present, ShouldBeFalse)
		})

		Convey("An existing mcp_context entry is overwritten", func() {
			first := msg.WithMCPContext(map[string]any{"resource": "doc-1"})
			second := first.WithMCPContext(map[string]any{"resource": "doc-2"})

			ctx := second.Metadata[MCPContextKey].(map[string]any)
			So(ctx["resource"], ShouldEqual, "doc-2")
		})

		Convey("An empty context is a no-op", func() {
			same := msg.WithMCPContext(nil)
			So(same.Metadata, ShouldResemble, msg.Metadata)
		})

		Convey("A context that cannot be serialised is dropped", func() {
			same := msg.WithMCPContext(map[string]any{"fn": func() {}})

			_, present := same.Metadata[MCPContextKey]
			So(present, ShouldBeFalse)
		})
	})
}

func TestMessageValidate(t *testing.T) {
	Convey("Message validation", t, func() {
		valid := NewTextMessage("user", "hi")
		So(valid.Validate(), ShouldBeNil)

		noRole := Message{Parts: []Part{{Type: PartTypeText, Text: "hi"}}}
		So(noRole.Validate(), ShouldNotBeNil)

		noParts := Message{Role: "user"}
		So(noParts.Validate(), ShouldNotBeNil)
	})
}
