package sim

import "sort"

// SubscriptionRegistry maps (subscriber, channel) to an activity window and
// tracks declared publishers per channel.
type SubscriptionRegistry struct {
	windows    map[SubscriptionKey]Window
	publishers map[ChannelName]map[ClientID]bool
}

// NewSubscriptionRegistry creates an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		windows:    make(map[SubscriptionKey]Window),
		publishers: make(map[ChannelName]map[ClientID]bool),
	}
}

// Subscribe records or replaces the window of (subscriber, channel).
func (r *SubscriptionRegistry) Subscribe(subscriber ClientID, channel ChannelName, w Window) {
	r.windows[SubscriptionKey{Subscriber: subscriber, Channel: channel}] = w
}

// Window returns the subscription window of (subscriber, channel).
func (r *SubscriptionRegistry) Window(subscriber ClientID, channel ChannelName) (Window, bool) {
	w, ok := r.windows[SubscriptionKey{Subscriber: subscriber, Channel: channel}]
	return w, ok
}

// ChannelsOf returns the channels subscriber is subscribed to, sorted.
func (r *SubscriptionRegistry) ChannelsOf(subscriber ClientID) []ChannelName {
	var channels []ChannelName
	for key := range r.windows {
		if key.Subscriber == subscriber {
			channels = append(channels, key.Channel)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// SubscribersOf returns the clients subscribed to channel, ascending.
func (r *SubscriptionRegistry) SubscribersOf(channel ChannelName) []ClientID {
	var ids []ClientID
	for key := range r.windows {
		if key.Channel == channel {
			ids = append(ids, key.Subscriber)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DeclarePublisher restricts channel to its declared publishers.
func (r *SubscriptionRegistry) DeclarePublisher(publisher ClientID, channel ChannelName) {
	declared, ok := r.publishers[channel]
	if !ok {
		declared = make(map[ClientID]bool)
		r.publishers[channel] = declared
	}
	declared[publisher] = true
}

// MayPublish reports whether sender may publish on channel. Channels without
// declarations are open to every client.
func (r *SubscriptionRegistry) MayPublish(sender ClientID, channel ChannelName) bool {
	declared, ok := r.publishers[channel]
	if !ok {
		return true
	}
	return declared[sender]
}
