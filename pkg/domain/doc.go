/*
Package domain contains the plain data types shared by the exposition engine
and its adapters.

It is kept free of I/O so that publishers, stores and transports can depend
on it without depending on each other.

# Key Entities

  - Change: A Field value change observed on an exposed endpoint.
  - RouteInfo: A description of one synthesized endpoint, for listings.
*/
package domain
