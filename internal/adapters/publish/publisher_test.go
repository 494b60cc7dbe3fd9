package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/pubsub"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/compliance-radar/pkg/logger"
)

var testMsg = Message{RunID: "run-42", GeneratedAt: "2024-05-15T08:30:00Z", Body: []byte(`{"ok":true}`)} //nolint:gochecknoglobals // test fixture

type fakeSQS struct {
	in  *sqs.SendMessageInput
	err error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

type fakeSNS struct {
	in *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	return &sns.PublishOutput{MessageId: aws.String("m-2")}, nil
}

type fakeTopic struct {
	msg *pubsub.Message
	err error
}

func (f *fakeTopic) Publish(_ context.Context, msg *pubsub.Message) (string, error) {
	f.msg = msg
	return "m-3", f.err
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type stubPublisher struct {
	id    string
	err   error
	calls int
}

func (s *stubPublisher) ID() string { return s.id }
func (s *stubPublisher) Publish(context.Context, Message) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error { return nil }

func TestQueueSenders(t *testing.T) {
	Convey("Given queue senders backed by fake clients", t, func() {
		ctx := context.Background()
		log := logger.Nop()

		Convey("Then SQS sends the body with a run_id attribute", func() {
			client := &fakeSQS{}
			s := &sqsSender{queueURL: "https://sqs/radar", client: client, log: log}
			So(s.Send(ctx, testMsg), ShouldBeNil)
			So(aws.ToString(client.in.QueueUrl), ShouldEqual, "https://sqs/radar")
			So(aws.ToString(client.in.MessageBody), ShouldEqual, `{"ok":true}`)
			So(aws.ToString(client.in.MessageAttributes["run_id"].StringValue), ShouldEqual, "run-42")
		})

		Convey("Then SNS publishes to the topic", func() {
			client := &fakeSNS{}
			s := &snsSender{topicARN: "arn:aws:sns:x", client: client, log: log}
			So(s.Send(ctx, testMsg), ShouldBeNil)
			So(aws.ToString(client.in.TopicArn), ShouldEqual, "arn:aws:sns:x")
			So(aws.ToString(client.in.Message), ShouldEqual, `{"ok":true}`)
		})

		Convey("Then Pub/Sub carries data and attributes", func() {
			topic := &fakeTopic{}
			s := &pubsubSender{topic: topic, log: log}
			So(s.Send(ctx, testMsg), ShouldBeNil)
			So(string(topic.msg.Data), ShouldEqual, `{"ok":true}`)
			So(topic.msg.Attributes["run_id"], ShouldEqual, "run-42")
			So(s.Close(), ShouldBeNil)
		})

		Convey("Then Kafka keys the message by run", func() {
			w := &fakeWriter{}
			s := &kafkaSender{writer: w, topic: "briefings", log: log}
			So(s.Send(ctx, testMsg), ShouldBeNil)
			So(len(w.msgs), ShouldEqual, 1)
			So(string(w.msgs[0].Key), ShouldEqual, "run-42")
			So(string(w.msgs[0].Value), ShouldEqual, `{"ok":true}`)
			So(s.Close(), ShouldBeNil)
			So(w.closed, ShouldBeTrue)
		})

		Convey("When a provider fails", func() {
			p := &queuePublisher{id: "q", provider: ProviderAWSSQS, sender: &sqsSender{client: &fakeSQS{err: errors.New("throttled")}, log: log}}
			err := p.Publish(ctx, testMsg)

			Convey("Then the error is a delivery failure naming the provider", func() {
				So(errors.Is(err, ErrDelivery), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "aws-sqs")
				So(err.Error(), ShouldContainSubstring, "throttled")
			})
		})
	})
}

func TestHTTPPublisher(t *testing.T) {
	Convey("Given a webhook server", t, func() {
		var body, runID, auth atomic.Value
		var fail atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			body.Store(string(b))
			runID.Store(r.Header.Get("X-Run-ID"))
			auth.Store(r.Header.Get("Authorization"))
			if fail.Load() {
				http.Error(w, "nope", http.StatusBadGateway)
			}
		}))
		defer srv.Close()

		cfgs, err := ParseConfigs([]byte(`publishers: [{id: hook, type: http, http: {url: "`+srv.URL+`", headers: {Authorization: token}}}]`), ".yaml")
		So(err, ShouldBeNil)
		p, err := DefaultRegistry().Build(context.Background(), cfgs[0], nil)
		So(err, ShouldBeNil)
		So(p.ID(), ShouldEqual, "hook")

		Convey("When the payload is posted", func() {
			So(p.Publish(context.Background(), testMsg), ShouldBeNil)

			Convey("Then the body and headers arrive", func() {
				So(body.Load(), ShouldEqual, `{"ok":true}`)
				So(runID.Load(), ShouldEqual, "run-42")
				So(auth.Load(), ShouldEqual, "token")
			})
		})

		Convey("When the server rejects it", func() {
			fail.Store(true)
			err := p.Publish(context.Background(), testMsg)
			So(errors.Is(err, ErrDelivery), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "502")
		})
	})
}

func TestRegistryAndDispatch(t *testing.T) {
	Convey("Given a registry", t, func() {
		ctx := context.Background()
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)
		log := logger.Named("publish")

		Convey("When a config has no builder", func() {
			r := NewRegistry(nil)
			_, err := r.Build(ctx, Config{ID: "x", Type: TypeHTTP}, log)
			So(errors.Is(err, ErrUnsupported), ShouldBeTrue)
		})

		Convey("When building several entries with one broken", func() {
			r := NewRegistry(map[string]Builder{
				"stub": func(_ context.Context, cfg Config, _ logger.Logger) (Publisher, error) {
					return &stubPublisher{id: cfg.ID}, nil
				},
			})
			pubs := r.BuildAll(ctx, []Config{{ID: "a", Type: "stub"}, {ID: "b", Type: "other"}, {ID: "c", Type: "STUB"}}, log)

			Convey("Then the rest are still built", func() {
				So(len(pubs), ShouldEqual, 2)
				So(pubs[1].ID(), ShouldEqual, "c")
				So(buf.String(), ShouldContainSubstring, "publisher setup failed")
			})
		})

		Convey("When kafka is configured", func() {
			p, err := DefaultRegistry().Build(ctx, Config{
				ID: "k", Type: TypeQueue,
				Queue: &QueueConfig{Provider: ProviderKafka, Kafka: &KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}},
			}, log)

			Convey("Then the writer is created lazily", func() {
				So(err, ShouldBeNil)
				So(p.ID(), ShouldEqual, "k")
				So(CloseAll([]Publisher{p}), ShouldBeNil)
			})
		})

		Convey("When dispatching to a mix of healthy and failing publishers", func() {
			good := &stubPublisher{id: "good"}
			bad := &stubPublisher{id: "bad", err: errors.New("down")}
			last := &stubPublisher{id: "last"}
			err := Dispatch(ctx, []Publisher{good, bad, last}, testMsg, log)

			Convey("Then every publisher is attempted and the failure reported", func() {
				So(good.calls, ShouldEqual, 1)
				So(bad.calls, ShouldEqual, 1)
				So(last.calls, ShouldEqual, 1)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "bad: down")
				So(buf.String(), ShouldContainSubstring, "publish failed")
			})
		})
	})
}
