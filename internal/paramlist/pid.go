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

// Package paramlist implements the ParameterList TLV encoding used for
// inline QoS and built-in topic data, per spec.md §4.1.
package paramlist

// PID is a parameter id in a ParameterList.
type PID int16

// Standard PIDs named in spec.md §4.1.
const (
	PIDPad                           PID = 0x0000
	PIDSentinel                      PID = 0x0001
	PIDUserData                      PID = 0x002c
	PIDTopicName                     PID = 0x0005
	PIDTypeName                      PID = 0x0007
	PIDDurability                    PID = 0x001d
	PIDDeadline                      PID = 0x0023
	PIDLiveliness                    PID = 0x001b
	PIDReliability                   PID = 0x001a
	PIDOwnership                     PID = 0x001f
	PIDHistory                       PID = 0x0040
	PIDResourceLimits                PID = 0x0041
	PIDTopicData                     PID = 0x002e
	PIDPartition                     PID = 0x0029
	PIDParticipantGuid               PID = 0x0050
	PIDEndpointGuid                  PID = 0x005a
	PIDUnicastLocator                PID = 0x002f
	PIDMulticastLocator              PID = 0x0030
	PIDDefaultUnicastLocator         PID = 0x0031
	PIDDefaultMulticastLocator       PID = 0x0048
	PIDMetatrafficUnicastLocator     PID = 0x0032
	PIDMetatrafficMulticastLocator   PID = 0x0033
	PIDProtocolVersion               PID = 0x0015
	PIDVendorId                      PID = 0x0016
	PIDDomainId                      PID = 0x000f
	PIDDomainTag                     PID = 0x4014
	PIDExpectsInlineQos              PID = 0x0043
	PIDParticipantLeaseDuration      PID = 0x0002
	PIDBuiltinEndpointSet            PID = 0x0058
	PIDBuiltinEndpointQos            PID = 0x0077
	PIDParticipantManualLivelinessCt PID = 0x0034
	PIDKeyHash                       PID = 0x0070
	PIDStatusInfo                    PID = 0x0071
)
