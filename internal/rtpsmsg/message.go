// Copyright RTPS Go Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rtpsmsg

// Message is a parsed RTPS datagram: the fixed header plus its submessages
// in wire order, still undispatched.
type Message struct {
	Header      Header
	Submessages []RawSubmessage
}

// Parse decodes buf as a full RTPS message.
func Parse(buf []byte) (Message, error) {
	h, rest, err := ParseHeader(buf)
	if err != nil {
		return Message{}, err
	}
	subs, err := ParseSubmessages(rest)
	if err != nil {
		return Message{}, err
	}
	return Message{Header: h, Submessages: subs}, nil
}

// Marshal serializes m to its wire form.
func (m Message) Marshal() []byte {
	buf := m.Header.Marshal(nil)
	for _, s := range m.Submessages {
		buf = MarshalSubmessage(buf, s.ID, s.Flags, s.Body)
	}
	return buf
}
